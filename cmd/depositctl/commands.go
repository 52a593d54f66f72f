package main

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"connectrpc.com/connect"
	"github.com/spf13/cobra"

	"github.com/mmynk/tenancydeposit/internal/auth"
	"github.com/mmynk/tenancydeposit/internal/models"
	"github.com/mmynk/tenancydeposit/pkg/depositapi"
)

type app struct {
	server string
	token  string
	as     string
	secret string
	ttl    time.Duration

	httpClient connect.HTTPClient
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// newRootCmd builds the command tree. A nil httpClient means http.DefaultClient.
func newRootCmd(httpClient connect.HTTPClient) *cobra.Command {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	a := &app{httpClient: httpClient}

	root := &cobra.Command{
		Use:           "depositctl",
		Short:         "Tenancy deposit escrow client",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	flags := root.PersistentFlags()
	flags.StringVar(&a.server, "server", envOr("DEPOSIT_SERVER", "http://localhost:8080"), "server base URL")
	flags.StringVar(&a.token, "token", os.Getenv("DEPOSIT_TOKEN"), "bearer token")
	flags.StringVar(&a.as, "as", "", "mint a token for this address with JWT_SECRET instead of --token")
	flags.StringVar(&a.secret, "secret", os.Getenv("JWT_SECRET"), "JWT secret used by token and --as")
	flags.DurationVar(&a.ttl, "ttl", 24*time.Hour, "lifetime of minted tokens")

	root.AddCommand(
		a.tokenCmd(),
		a.createCmd(),
		a.payCmd(),
		a.approveCmd(),
		a.withdrawCmd(),
		a.getCmd(),
		a.listCmd(),
		a.balancesCmd(),
		a.eventsCmd(),
		a.accountCmd(),
		a.landlordCmd(),
	)
	return root
}

func (a *app) client() depositapi.DepositServiceClient {
	return depositapi.NewDepositServiceClient(a.httpClient, a.server)
}

func (a *app) mint(addr models.Address) (string, error) {
	if a.secret == "" {
		return "", errors.New("JWT_SECRET (or --secret) is required to mint tokens")
	}
	return auth.NewJWTManager(a.secret, a.ttl).Generate(addr)
}

// bearer returns the token to send, if any.
func (a *app) bearer() (string, error) {
	if a.as != "" {
		return a.mint(models.ParseAddress(a.as))
	}
	return a.token, nil
}

func newRequest[T any](a *app, msg *T) (*connect.Request[T], error) {
	req := connect.NewRequest(msg)
	token, err := a.bearer()
	if err != nil {
		return nil, err
	}
	if token != "" {
		req.Header().Set("Authorization", "Bearer "+token)
	}
	return req, nil
}

// callError adds the ledger reason to a failed call.
func callError(err error) error {
	var connectErr *connect.Error
	if errors.As(err, &connectErr) {
		if reason := connectErr.Meta().Get(depositapi.ReasonHeader); reason != "" {
			return fmt.Errorf("%s: %s", reason, connectErr.Message())
		}
	}
	return err
}

func parseEtherArg(name, s string) (string, error) {
	amount, err := models.ParseEther(s)
	if err != nil {
		return "", fmt.Errorf("%s: %w", name, err)
	}
	return amount.String(), nil
}

func (a *app) tokenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "token ADDRESS",
		Short: "Mint a bearer token for an address",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			token, err := a.mint(models.ParseAddress(args[0]))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
}

func (a *app) createCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "create PROPERTY_ID DEPOSIT_ETHER",
		Short: "Open a deposit agreement (landlord)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			wei, err := parseEtherArg("deposit", args[1])
			if err != nil {
				return err
			}
			req, err := newRequest(a, &depositapi.CreateDepositAgreementRequest{PropertyId: args[0], DepositRequired: wei})
			if err != nil {
				return err
			}
			resp, err := a.client().CreateDepositAgreement(cmd.Context(), req)
			if err != nil {
				return callError(err)
			}
			printAgreement(cmd.OutOrStdout(), resp.Msg.Agreement)
			return nil
		},
	}
}

func (a *app) payCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pay PROPERTY_ID AMOUNT_ETHER",
		Short: "Pay a deposit (tenant); any excess is refunded",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			wei, err := parseEtherArg("amount", args[1])
			if err != nil {
				return err
			}
			req, err := newRequest(a, &depositapi.PayDepositRequest{PropertyId: args[0], Amount: wei})
			if err != nil {
				return err
			}
			resp, err := a.client().PayDeposit(cmd.Context(), req)
			if err != nil {
				return callError(err)
			}
			printAgreement(cmd.OutOrStdout(), resp.Msg.Agreement)
			if resp.Msg.Refunded != "" && resp.Msg.Refunded != "0" {
				fmt.Fprintf(cmd.OutOrStdout(), "Refunded:\t%s ETH\n", ether(resp.Msg.Refunded))
			}
			return nil
		},
	}
}

func (a *app) approveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "approve PROPERTY_ID [DEDUCTIONS_ETHER]",
		Short: "Approve the deposit return with optional deductions (landlord)",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			deductions := "0"
			if len(args) == 2 {
				var err error
				if deductions, err = parseEtherArg("deductions", args[1]); err != nil {
					return err
				}
			}
			req, err := newRequest(a, &depositapi.ApproveDepositReturnRequest{PropertyId: args[0], Deductions: deductions})
			if err != nil {
				return err
			}
			resp, err := a.client().ApproveDepositReturn(cmd.Context(), req)
			if err != nil {
				return callError(err)
			}
			printAgreement(cmd.OutOrStdout(), resp.Msg.Agreement)
			return nil
		},
	}
}

func (a *app) withdrawCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "withdraw PROPERTY_ID",
		Short: "Withdraw the released deposit (tenant)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := newRequest(a, &depositapi.WithdrawDepositRequest{PropertyId: args[0]})
			if err != nil {
				return err
			}
			resp, err := a.client().WithdrawDeposit(cmd.Context(), req)
			if err != nil {
				return callError(err)
			}
			printAgreement(cmd.OutOrStdout(), resp.Msg.Agreement)
			return nil
		},
	}
}

func (a *app) getCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get PROPERTY_ID",
		Short: "Show one agreement",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := newRequest(a, &depositapi.GetDepositRequest{PropertyId: args[0]})
			if err != nil {
				return err
			}
			resp, err := a.client().GetDeposit(cmd.Context(), req)
			if err != nil {
				return callError(err)
			}
			printAgreement(cmd.OutOrStdout(), resp.Msg.Agreement)
			return nil
		},
	}
}

func (a *app) listCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List agreements",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			idsOnly, _ := cmd.Flags().GetBool("ids")
			req, err := newRequest(a, &depositapi.GetPropertyIdsRequest{})
			if err != nil {
				return err
			}
			resp, err := a.client().GetPropertyIds(cmd.Context(), req)
			if err != nil {
				return callError(err)
			}
			if idsOnly {
				for _, id := range resp.Msg.PropertyIds {
					fmt.Fprintln(cmd.OutOrStdout(), id)
				}
				return nil
			}

			agreements := make([]*depositapi.Agreement, 0, len(resp.Msg.PropertyIds))
			for _, id := range resp.Msg.PropertyIds {
				req, err := newRequest(a, &depositapi.GetDepositRequest{PropertyId: id})
				if err != nil {
					return err
				}
				got, err := a.client().GetDeposit(cmd.Context(), req)
				if err != nil {
					return callError(err)
				}
				agreements = append(agreements, got.Msg.Agreement)
			}
			printAgreementTable(cmd.OutOrStdout(), agreements)
			return nil
		},
	}
	cmd.Flags().Bool("ids", false, "print property ids only")
	return cmd
}

func (a *app) balancesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "balances",
		Short: "Show the total held in escrow (landlord)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := newRequest(a, &depositapi.DepositBalancesRequest{})
			if err != nil {
				return err
			}
			resp, err := a.client().DepositBalances(cmd.Context(), req)
			if err != nil {
				return callError(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s ETH\n", ether(resp.Msg.Balance))
			return nil
		},
	}
}

func (a *app) eventsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "events [PROPERTY_ID]",
		Short: "Show the event history",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			msg := &depositapi.ListEventsRequest{}
			if len(args) == 1 {
				msg.PropertyId = args[0]
			}
			req, err := newRequest(a, msg)
			if err != nil {
				return err
			}
			resp, err := a.client().ListEvents(cmd.Context(), req)
			if err != nil {
				return callError(err)
			}
			printEvents(cmd.OutOrStdout(), resp.Msg.Events)
			return nil
		},
	}
}

func (a *app) accountCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "account [ADDRESS]",
		Short: "Show what escrow has paid out to an address (default: caller)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			msg := &depositapi.GetAccountBalanceRequest{}
			if len(args) == 1 {
				msg.Address = args[0]
			}
			req, err := newRequest(a, msg)
			if err != nil {
				return err
			}
			resp, err := a.client().GetAccountBalance(cmd.Context(), req)
			if err != nil {
				return callError(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s ETH\n", resp.Msg.Address, ether(resp.Msg.Balance))
			return nil
		},
	}
}

func (a *app) landlordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "landlord",
		Short: "Show the landlord address",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := newRequest(a, &depositapi.GetLandlordRequest{})
			if err != nil {
				return err
			}
			resp, err := a.client().GetLandlord(cmd.Context(), req)
			if err != nil {
				return callError(err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), resp.Msg.Landlord)
			return nil
		},
	}
}
