package models

import "testing"

func TestPurchaseOrderTransitions(t *testing.T) {
	allowed := []struct{ from, to PurchaseOrderStatus }{
		{PurchaseOrderStatusDraft, PurchaseOrderStatusConfirmed},
		{PurchaseOrderStatusDraft, PurchaseOrderStatusCancelled},
		{PurchaseOrderStatusConfirmed, PurchaseOrderStatusReceived},
		{PurchaseOrderStatusConfirmed, PurchaseOrderStatusBilled},
		{PurchaseOrderStatusConfirmed, PurchaseOrderStatusCancelled},
		{PurchaseOrderStatusReceived, PurchaseOrderStatusBilled},
		{PurchaseOrderStatusReceived, PurchaseOrderStatusCancelled},
	}
	for _, c := range allowed {
		if !c.from.CanTransitionTo(c.to) {
			t.Fatalf("expected %s -> %s to be allowed", c.from, c.to)
		}
	}
	denied := []struct{ from, to PurchaseOrderStatus }{
		{PurchaseOrderStatusDraft, PurchaseOrderStatusReceived},
		{PurchaseOrderStatusDraft, PurchaseOrderStatusBilled},
		{PurchaseOrderStatusBilled, PurchaseOrderStatusConfirmed},
		{PurchaseOrderStatusBilled, PurchaseOrderStatusCancelled},
		{PurchaseOrderStatusCancelled, PurchaseOrderStatusDraft},
		{PurchaseOrderStatusReceived, PurchaseOrderStatusConfirmed},
	}
	for _, c := range denied {
		if c.from.CanTransitionTo(c.to) {
			t.Fatalf("expected %s -> %s to be denied", c.from, c.to)
		}
	}
}

func TestRequisitionTerminalStatesHaveNoExits(t *testing.T) {
	all := []RequisitionStatus{
		RequisitionStatusDraft, RequisitionStatusSubmitted, RequisitionStatusApproved,
		RequisitionStatusRejected, RequisitionStatusCancelled,
	}
	for _, terminal := range []RequisitionStatus{RequisitionStatusRejected, RequisitionStatusCancelled} {
		for _, next := range all {
			if terminal.CanTransitionTo(next) {
				t.Fatalf("terminal status %s must not transition to %s", terminal, next)
			}
		}
	}
	if !RequisitionStatusSubmitted.CanTransitionTo(RequisitionStatusApproved) {
		t.Fatalf("Submitted -> Approved must be allowed")
	}
	if RequisitionStatusDraft.CanTransitionTo(RequisitionStatusApproved) {
		t.Fatalf("Draft -> Approved must be denied")
	}
}

func TestQuotationTransitions(t *testing.T) {
	if !QuotationStatusSent.CanTransitionTo(QuotationStatusAccepted) {
		t.Fatalf("Sent -> Accepted must be allowed")
	}
	if !QuotationStatusSent.CanTransitionTo(QuotationStatusExpired) {
		t.Fatalf("Sent -> Expired must be allowed")
	}
	if QuotationStatusDraft.CanTransitionTo(QuotationStatusAccepted) {
		t.Fatalf("a draft quotation cannot be accepted before it is sent")
	}
	if QuotationStatusExpired.CanTransitionTo(QuotationStatusAccepted) {
		t.Fatalf("an expired quotation cannot be accepted")
	}
}

func TestBillAndInvoicePaymentTransitions(t *testing.T) {
	if !BillStatusPosted.CanTransitionTo(BillStatusPartialPaid) {
		t.Fatalf("Posted -> Partial Paid must be allowed")
	}
	if !BillStatusPartialPaid.CanTransitionTo(BillStatusPaid) {
		t.Fatalf("Partial Paid -> Paid must be allowed")
	}
	if BillStatusPaid.CanTransitionTo(BillStatusPosted) {
		t.Fatalf("a paid bill cannot reopen")
	}
	if BillStatusDraft.CanTransitionTo(BillStatusPaid) {
		t.Fatalf("a draft bill cannot be paid before posting")
	}
	if !SalesInvoiceStatusPosted.CanTransitionTo(SalesInvoiceStatusPaid) {
		t.Fatalf("Posted -> Paid must be allowed for invoices")
	}
	if SalesInvoiceStatusCancelled.CanTransitionTo(SalesInvoiceStatusPosted) {
		t.Fatalf("a cancelled invoice cannot post")
	}
}

func TestSalesOrderTransitions(t *testing.T) {
	if !SalesOrderStatusConfirmed.CanTransitionTo(SalesOrderStatusFulfilled) {
		t.Fatalf("Confirmed -> Fulfilled must be allowed")
	}
	if SalesOrderStatusDraft.CanTransitionTo(SalesOrderStatusFulfilled) {
		t.Fatalf("a draft order cannot fulfill")
	}
	if SalesOrderStatusFulfilled.CanTransitionTo(SalesOrderStatusCancelled) {
		t.Fatalf("a fulfilled order cannot cancel")
	}
}

func TestAccountMainTypeNormalSide(t *testing.T) {
	debitNormal := []AccountMainType{AccountMainTypeAsset, AccountMainTypeExpense}
	creditNormal := []AccountMainType{AccountMainTypeLiability, AccountMainTypeEquity, AccountMainTypeIncome}
	for _, at := range debitNormal {
		if !at.IsDebitNormal() {
			t.Fatalf("%s must be debit-normal", at)
		}
	}
	for _, at := range creditNormal {
		if at.IsDebitNormal() {
			t.Fatalf("%s must be credit-normal", at)
		}
	}
	if AccountMainType("Contra").IsValid() {
		t.Fatalf("unknown account type must be invalid")
	}
}
