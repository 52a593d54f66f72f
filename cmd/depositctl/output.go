package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/mmynk/tenancydeposit/internal/models"
	"github.com/mmynk/tenancydeposit/pkg/depositapi"
)

// ether renders a wei string in ether, or returns it unchanged if malformed.
func ether(wei string) string {
	a, err := models.ParseAmount(wei)
	if err != nil {
		return wei
	}
	return a.Ether()
}

func timestamp(unix int64) string {
	if unix == 0 {
		return "-"
	}
	return time.Unix(unix, 0).UTC().Format(time.RFC3339)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func printAgreement(out io.Writer, a *depositapi.Agreement) {
	if a == nil {
		return
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Property:\t%s\n", a.PropertyId)
	fmt.Fprintf(w, "State:\t%s\n", a.StateDescription)
	fmt.Fprintf(w, "Landlord:\t%s\n", a.Landlord)
	fmt.Fprintf(w, "Tenant:\t%s\n", orDash(a.Tenant))
	fmt.Fprintf(w, "Deposit required:\t%s ETH\n", ether(a.DepositRequired))
	fmt.Fprintf(w, "Deposit held:\t%s ETH\n", ether(a.DepositAmount))
	fmt.Fprintf(w, "Deductions:\t%s ETH\n", ether(a.Deductions))
	fmt.Fprintf(w, "Return amount:\t%s ETH\n", ether(a.ReturnAmount))
	fmt.Fprintf(w, "Updated:\t%s\n", timestamp(a.UpdatedAt))
	w.Flush()
}

func printAgreementTable(out io.Writer, agreements []*depositapi.Agreement) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PROPERTY\tSTATE\tTENANT\tREQUIRED\tHELD\tRETURN")
	for _, a := range agreements {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			a.PropertyId, a.State, orDash(a.Tenant),
			ether(a.DepositRequired), ether(a.DepositAmount), ether(a.ReturnAmount))
	}
	w.Flush()
}

func printEvents(out io.Writer, evts []*depositapi.Event) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SEQ\tTYPE\tPROPERTY\tAMOUNT\tREFUNDED\tDEDUCTIONS\tAT")
	for _, e := range evts {
		refunded, deductions := "-", "-"
		if e.Refunded != "" {
			refunded = ether(e.Refunded)
		}
		if e.Deductions != "" {
			deductions = ether(e.Deductions)
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
			e.Seq, e.Type, e.PropertyId, ether(e.Amount), refunded, deductions, timestamp(e.CreatedAt))
	}
	w.Flush()
}
