package models

/*
Closed enum-like string types for document statuses, account natures and
stock move types. Each document status carries an explicit transition table;
illegal transitions are rejected with ErrorInvalidState by the callers.
*/

type AccountMainType string

const (
	AccountMainTypeAsset     AccountMainType = "Asset"
	AccountMainTypeLiability AccountMainType = "Liability"
	AccountMainTypeEquity    AccountMainType = "Equity"
	AccountMainTypeIncome    AccountMainType = "Income"
	AccountMainTypeExpense   AccountMainType = "Expense"
)

func (t AccountMainType) IsValid() bool {
	switch t {
	case AccountMainTypeAsset, AccountMainTypeLiability, AccountMainTypeEquity,
		AccountMainTypeIncome, AccountMainTypeExpense:
		return true
	}
	return false
}

// IsDebitNormal reports whether the account's balance grows on the debit side.
func (t AccountMainType) IsDebitNormal() bool {
	return t == AccountMainTypeAsset || t == AccountMainTypeExpense
}

type RequisitionStatus string

const (
	RequisitionStatusDraft     RequisitionStatus = "Draft"
	RequisitionStatusSubmitted RequisitionStatus = "Submitted"
	RequisitionStatusApproved  RequisitionStatus = "Approved"
	RequisitionStatusRejected  RequisitionStatus = "Rejected"
	RequisitionStatusCancelled RequisitionStatus = "Cancelled"
)

var requisitionTransitions = map[RequisitionStatus][]RequisitionStatus{
	RequisitionStatusDraft:     {RequisitionStatusSubmitted, RequisitionStatusCancelled},
	RequisitionStatusSubmitted: {RequisitionStatusApproved, RequisitionStatusRejected, RequisitionStatusCancelled},
	RequisitionStatusApproved:  {RequisitionStatusCancelled},
	RequisitionStatusRejected:  {},
	RequisitionStatusCancelled: {},
}

func (s RequisitionStatus) CanTransitionTo(next RequisitionStatus) bool {
	for _, allowed := range requisitionTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

type PurchaseOrderStatus string

const (
	PurchaseOrderStatusDraft     PurchaseOrderStatus = "Draft"
	PurchaseOrderStatusConfirmed PurchaseOrderStatus = "Confirmed"
	PurchaseOrderStatusReceived  PurchaseOrderStatus = "Received"
	PurchaseOrderStatusBilled    PurchaseOrderStatus = "Billed"
	PurchaseOrderStatusCancelled PurchaseOrderStatus = "Cancelled"
)

var purchaseOrderTransitions = map[PurchaseOrderStatus][]PurchaseOrderStatus{
	PurchaseOrderStatusDraft:     {PurchaseOrderStatusConfirmed, PurchaseOrderStatusCancelled},
	PurchaseOrderStatusConfirmed: {PurchaseOrderStatusReceived, PurchaseOrderStatusBilled, PurchaseOrderStatusCancelled},
	PurchaseOrderStatusReceived:  {PurchaseOrderStatusBilled, PurchaseOrderStatusCancelled},
	PurchaseOrderStatusBilled:    {},
	PurchaseOrderStatusCancelled: {},
}

func (s PurchaseOrderStatus) CanTransitionTo(next PurchaseOrderStatus) bool {
	for _, allowed := range purchaseOrderTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

type BillStatus string

const (
	BillStatusDraft       BillStatus = "Draft"
	BillStatusPosted      BillStatus = "Posted"
	BillStatusPartialPaid BillStatus = "Partial Paid"
	BillStatusPaid        BillStatus = "Paid"
	BillStatusCancelled   BillStatus = "Cancelled"
)

var billTransitions = map[BillStatus][]BillStatus{
	BillStatusDraft:       {BillStatusPosted, BillStatusCancelled},
	BillStatusPosted:      {BillStatusPartialPaid, BillStatusPaid},
	BillStatusPartialPaid: {BillStatusPaid},
	BillStatusPaid:        {},
	BillStatusCancelled:   {},
}

func (s BillStatus) CanTransitionTo(next BillStatus) bool {
	for _, allowed := range billTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

type QuotationStatus string

const (
	QuotationStatusDraft     QuotationStatus = "Draft"
	QuotationStatusSent      QuotationStatus = "Sent"
	QuotationStatusAccepted  QuotationStatus = "Accepted"
	QuotationStatusRejected  QuotationStatus = "Rejected"
	QuotationStatusExpired   QuotationStatus = "Expired"
	QuotationStatusCancelled QuotationStatus = "Cancelled"
)

var quotationTransitions = map[QuotationStatus][]QuotationStatus{
	QuotationStatusDraft:     {QuotationStatusSent, QuotationStatusCancelled},
	QuotationStatusSent:      {QuotationStatusAccepted, QuotationStatusRejected, QuotationStatusExpired, QuotationStatusCancelled},
	QuotationStatusAccepted:  {QuotationStatusCancelled},
	QuotationStatusRejected:  {},
	QuotationStatusExpired:   {},
	QuotationStatusCancelled: {},
}

func (s QuotationStatus) CanTransitionTo(next QuotationStatus) bool {
	for _, allowed := range quotationTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

type SalesOrderStatus string

const (
	SalesOrderStatusDraft     SalesOrderStatus = "Draft"
	SalesOrderStatusConfirmed SalesOrderStatus = "Confirmed"
	SalesOrderStatusFulfilled SalesOrderStatus = "Fulfilled"
	SalesOrderStatusCancelled SalesOrderStatus = "Cancelled"
)

var salesOrderTransitions = map[SalesOrderStatus][]SalesOrderStatus{
	SalesOrderStatusDraft:     {SalesOrderStatusConfirmed, SalesOrderStatusCancelled},
	SalesOrderStatusConfirmed: {SalesOrderStatusFulfilled, SalesOrderStatusCancelled},
	SalesOrderStatusFulfilled: {},
	SalesOrderStatusCancelled: {},
}

func (s SalesOrderStatus) CanTransitionTo(next SalesOrderStatus) bool {
	for _, allowed := range salesOrderTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

type SalesInvoiceStatus string

const (
	SalesInvoiceStatusDraft       SalesInvoiceStatus = "Draft"
	SalesInvoiceStatusPosted      SalesInvoiceStatus = "Posted"
	SalesInvoiceStatusPartialPaid SalesInvoiceStatus = "Partial Paid"
	SalesInvoiceStatusPaid        SalesInvoiceStatus = "Paid"
	SalesInvoiceStatusCancelled   SalesInvoiceStatus = "Cancelled"
)

var salesInvoiceTransitions = map[SalesInvoiceStatus][]SalesInvoiceStatus{
	SalesInvoiceStatusDraft:       {SalesInvoiceStatusPosted, SalesInvoiceStatusCancelled},
	SalesInvoiceStatusPosted:      {SalesInvoiceStatusPartialPaid, SalesInvoiceStatusPaid},
	SalesInvoiceStatusPartialPaid: {SalesInvoiceStatusPaid},
	SalesInvoiceStatusPaid:        {},
	SalesInvoiceStatusCancelled:   {},
}

func (s SalesInvoiceStatus) CanTransitionTo(next SalesInvoiceStatus) bool {
	for _, allowed := range salesInvoiceTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

type CreditNoteStatus string

const (
	CreditNoteStatusDraft  CreditNoteStatus = "Draft"
	CreditNoteStatusPosted CreditNoteStatus = "Posted"
)

type StockMoveType string

const (
	StockMoveTypeReceipt    StockMoveType = "Receipt"
	StockMoveTypeIssue      StockMoveType = "Issue"
	StockMoveTypeTransfer   StockMoveType = "Transfer"
	StockMoveTypeAdjustment StockMoveType = "Adjustment"
	StockMoveTypeQuarantine StockMoveType = "Quarantine"
)

func (t StockMoveType) IsValid() bool {
	switch t {
	case StockMoveTypeReceipt, StockMoveTypeIssue, StockMoveTypeTransfer,
		StockMoveTypeAdjustment, StockMoveTypeQuarantine:
		return true
	}
	return false
}

// RequiresDestination reports whether lines of this move type carry both a
// source and a destination warehouse.
func (t StockMoveType) RequiresDestination() bool {
	return t == StockMoveTypeTransfer || t == StockMoveTypeQuarantine
}

// PurchaseStockRecognition decides when a purchase becomes billable:
// at goods receipt or directly at bill time.
type PurchaseStockRecognition string

const (
	PurchaseStockRecognitionReceipt PurchaseStockRecognition = "Receipt"
	PurchaseStockRecognitionBill    PurchaseStockRecognition = "Bill"
)

// DocumentType keys the per-tenant number sequences.
type DocumentType string

const (
	DocumentTypeRequisition   DocumentType = "Requisition"
	DocumentTypePurchaseOrder DocumentType = "PurchaseOrder"
	DocumentTypeGoodsReceipt  DocumentType = "GoodsReceipt"
	DocumentTypeBill          DocumentType = "Bill"
	DocumentTypeQuotation     DocumentType = "Quotation"
	DocumentTypeSalesOrder    DocumentType = "SalesOrder"
	DocumentTypeSalesInvoice  DocumentType = "SalesInvoice"
	DocumentTypeCreditNote    DocumentType = "CreditNote"
	DocumentTypeStockMove     DocumentType = "StockMove"
	DocumentTypeJournal       DocumentType = "Journal"
)

// AccountReferenceType tags a journal with its originating document kind.
type AccountReferenceType string

const (
	AccountReferenceTypeManual         AccountReferenceType = "Manual"
	AccountReferenceTypeBill           AccountReferenceType = "Bill"
	AccountReferenceTypeBillPayment    AccountReferenceType = "BillPayment"
	AccountReferenceTypeInvoice        AccountReferenceType = "Invoice"
	AccountReferenceTypeInvoicePayment AccountReferenceType = "InvoicePayment"
	AccountReferenceTypeCreditNote     AccountReferenceType = "CreditNote"
)

// Module names gating core operations per tenant.
const (
	ModuleAccounting = "Accounting"
	ModuleInventory  = "Inventory"
	ModulePurchase   = "Purchase"
	ModuleSales      = "Sales"
)
