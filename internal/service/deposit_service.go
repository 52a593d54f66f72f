package service

import (
	"context"
	"errors"
	"log/slog"

	"connectrpc.com/connect"
	"github.com/mmynk/tenancydeposit/internal/ledger"
	"github.com/mmynk/tenancydeposit/internal/middleware"
	"github.com/mmynk/tenancydeposit/internal/models"
	"github.com/mmynk/tenancydeposit/pkg/depositapi"
)

// DepositService implements the Connect DepositService on top of the ledger.
type DepositService struct {
	ledger *ledger.Ledger
}

var _ depositapi.DepositServiceHandler = (*DepositService)(nil)

// NewDepositService creates a new DepositService serving l.
func NewDepositService(l *ledger.Ledger) *DepositService {
	return &DepositService{ledger: l}
}

// toConnectError maps a ledger error onto a connect code and attaches the
// stable reason tag.
func toConnectError(ctx context.Context, err error) error {
	code := connect.CodeInternal
	switch {
	case errors.Is(err, ledger.ErrUnauthorized):
		code = connect.CodePermissionDenied
		if middleware.GetCaller(ctx).IsZero() {
			code = connect.CodeUnauthenticated
		}
	case errors.Is(err, ledger.ErrNotFound):
		code = connect.CodeNotFound
	case errors.Is(err, ledger.ErrAlreadyExists):
		code = connect.CodeAlreadyExists
	case errors.Is(err, ledger.ErrInvalidState),
		errors.Is(err, ledger.ErrInsufficientFunds),
		errors.Is(err, ledger.ErrDeductionExceedsDeposit):
		code = connect.CodeFailedPrecondition
	case errors.Is(err, ledger.ErrInvalidAmount),
		errors.Is(err, ledger.ErrInvalidPropertyID),
		errors.Is(err, models.ErrInvalidAmount):
		code = connect.CodeInvalidArgument
	case errors.Is(err, ledger.ErrPayoutFailed):
		code = connect.CodeAborted
	case errors.Is(err, context.Canceled):
		code = connect.CodeCanceled
	case errors.Is(err, context.DeadlineExceeded):
		code = connect.CodeDeadlineExceeded
	}

	connectErr := connect.NewError(code, err)
	if reason := ledger.Reason(err); reason != "" {
		connectErr.Meta().Set(depositapi.ReasonHeader, reason)
	}
	return connectErr
}

func invalidArgument(err error) error {
	connectErr := connect.NewError(connect.CodeInvalidArgument, err)
	connectErr.Meta().Set(depositapi.ReasonHeader, "INVALID_ARGUMENT")
	return connectErr
}

// CreateDepositAgreement opens an agreement for a property.
func (s *DepositService) CreateDepositAgreement(ctx context.Context, req *connect.Request[depositapi.CreateDepositAgreementRequest]) (*connect.Response[depositapi.CreateDepositAgreementResponse], error) {
	required, err := parseWei("deposit_required", req.Msg.DepositRequired)
	if err != nil {
		return nil, invalidArgument(err)
	}

	slog.Info("CreateDepositAgreement request", "property_id", req.Msg.PropertyId, "deposit_required", required)
	a, err := s.ledger.CreateDepositAgreement(ctx, req.Msg.PropertyId, required)
	if err != nil {
		slog.Warn("CreateDepositAgreement rejected", "property_id", req.Msg.PropertyId, "reason", ledger.Reason(err), "error", err)
		return nil, toConnectError(ctx, err)
	}
	slog.Info("Agreement created", "property_id", a.PropertyID, "deposit_required", a.DepositRequired)

	return connect.NewResponse(&depositapi.CreateDepositAgreementResponse{
		Agreement: agreementToProto(a),
	}), nil
}

// PayDeposit pays the deposit of a Created agreement, refunding any excess.
func (s *DepositService) PayDeposit(ctx context.Context, req *connect.Request[depositapi.PayDepositRequest]) (*connect.Response[depositapi.PayDepositResponse], error) {
	paid, err := parseWei("amount", req.Msg.Amount)
	if err != nil {
		return nil, invalidArgument(err)
	}

	slog.Info("PayDeposit request", "property_id", req.Msg.PropertyId, "amount", paid)
	a, err := s.ledger.PayDeposit(ctx, req.Msg.PropertyId, paid)
	if err != nil {
		slog.Warn("PayDeposit rejected", "property_id", req.Msg.PropertyId, "reason", ledger.Reason(err), "error", err)
		return nil, toConnectError(ctx, err)
	}

	refunded, err := paid.Sub(a.DepositAmount)
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	slog.Info("Deposit paid", "property_id", a.PropertyID, "tenant", a.Tenant, "deposit", a.DepositAmount, "refunded", refunded)

	return connect.NewResponse(&depositapi.PayDepositResponse{
		Agreement: agreementToProto(a),
		Refunded:  refunded.String(),
	}), nil
}

// ApproveDepositReturn fixes the deductions and releases the rest.
func (s *DepositService) ApproveDepositReturn(ctx context.Context, req *connect.Request[depositapi.ApproveDepositReturnRequest]) (*connect.Response[depositapi.ApproveDepositReturnResponse], error) {
	deductions := models.Amount{}
	if req.Msg.Deductions != "" {
		var err error
		if deductions, err = parseWei("deductions", req.Msg.Deductions); err != nil {
			return nil, invalidArgument(err)
		}
	}

	slog.Info("ApproveDepositReturn request", "property_id", req.Msg.PropertyId, "deductions", deductions)
	a, err := s.ledger.ApproveDepositReturn(ctx, req.Msg.PropertyId, deductions)
	if err != nil {
		slog.Warn("ApproveDepositReturn rejected", "property_id", req.Msg.PropertyId, "reason", ledger.Reason(err), "error", err)
		return nil, toConnectError(ctx, err)
	}
	slog.Info("Deposit released", "property_id", a.PropertyID, "deductions", a.Deductions, "return_amount", a.ReturnAmount)

	return connect.NewResponse(&depositapi.ApproveDepositReturnResponse{
		Agreement: agreementToProto(a),
	}), nil
}

// WithdrawDeposit pays out a Released agreement and ends it.
func (s *DepositService) WithdrawDeposit(ctx context.Context, req *connect.Request[depositapi.WithdrawDepositRequest]) (*connect.Response[depositapi.WithdrawDepositResponse], error) {
	slog.Info("WithdrawDeposit request", "property_id", req.Msg.PropertyId)
	a, err := s.ledger.WithdrawDeposit(ctx, req.Msg.PropertyId)
	if err != nil {
		slog.Warn("WithdrawDeposit rejected", "property_id", req.Msg.PropertyId, "reason", ledger.Reason(err), "error", err)
		return nil, toConnectError(ctx, err)
	}
	slog.Info("Deposit withdrawn", "property_id", a.PropertyID, "tenant", a.Tenant, "return_amount", a.ReturnAmount, "deductions", a.Deductions)

	return connect.NewResponse(&depositapi.WithdrawDepositResponse{
		Agreement: agreementToProto(a),
	}), nil
}

// GetDeposit returns one agreement.
func (s *DepositService) GetDeposit(ctx context.Context, req *connect.Request[depositapi.GetDepositRequest]) (*connect.Response[depositapi.GetDepositResponse], error) {
	a, err := s.ledger.GetDeposit(ctx, req.Msg.PropertyId)
	if err != nil {
		return nil, toConnectError(ctx, err)
	}
	return connect.NewResponse(&depositapi.GetDepositResponse{
		Agreement: agreementToProto(a),
	}), nil
}

// GetPropertyIds lists every property with an agreement.
func (s *DepositService) GetPropertyIds(ctx context.Context, req *connect.Request[depositapi.GetPropertyIdsRequest]) (*connect.Response[depositapi.GetPropertyIdsResponse], error) {
	ids, err := s.ledger.PropertyIDs(ctx)
	if err != nil {
		slog.Error("GetPropertyIds failed", "error", err)
		return nil, toConnectError(ctx, err)
	}
	if ids == nil {
		ids = []string{}
	}
	return connect.NewResponse(&depositapi.GetPropertyIdsResponse{PropertyIds: ids}), nil
}

// DepositBalances returns the total in custody. Landlord only.
func (s *DepositService) DepositBalances(ctx context.Context, req *connect.Request[depositapi.DepositBalancesRequest]) (*connect.Response[depositapi.DepositBalancesResponse], error) {
	total, err := s.ledger.DepositBalances(ctx)
	if err != nil {
		return nil, toConnectError(ctx, err)
	}
	return connect.NewResponse(&depositapi.DepositBalancesResponse{Balance: total.String()}), nil
}

// GetLandlord returns the fixed landlord identity.
func (s *DepositService) GetLandlord(ctx context.Context, req *connect.Request[depositapi.GetLandlordRequest]) (*connect.Response[depositapi.GetLandlordResponse], error) {
	return connect.NewResponse(&depositapi.GetLandlordResponse{
		Landlord: s.ledger.Landlord().String(),
	}), nil
}

// ListEvents returns the committed event history.
func (s *DepositService) ListEvents(ctx context.Context, req *connect.Request[depositapi.ListEventsRequest]) (*connect.Response[depositapi.ListEventsResponse], error) {
	evts, err := s.ledger.Events(ctx, req.Msg.PropertyId)
	if err != nil {
		slog.Error("ListEvents failed", "property_id", req.Msg.PropertyId, "error", err)
		return nil, toConnectError(ctx, err)
	}

	out := make([]*depositapi.Event, len(evts))
	for i, e := range evts {
		out[i] = eventToProto(e)
	}
	return connect.NewResponse(&depositapi.ListEventsResponse{Events: out}), nil
}

// GetAccountBalance returns what escrow has paid out to an address. An empty
// address means the caller.
func (s *DepositService) GetAccountBalance(ctx context.Context, req *connect.Request[depositapi.GetAccountBalanceRequest]) (*connect.Response[depositapi.GetAccountBalanceResponse], error) {
	addr := models.ParseAddress(req.Msg.Address)
	if addr.IsZero() {
		addr = middleware.GetCaller(ctx)
	}
	if addr.IsZero() {
		return nil, invalidArgument(errors.New("address is required"))
	}

	balance, err := s.ledger.AccountBalance(ctx, addr)
	if err != nil {
		return nil, toConnectError(ctx, err)
	}
	return connect.NewResponse(&depositapi.GetAccountBalanceResponse{
		Address: addr.String(),
		Balance: balance.String(),
	}), nil
}
