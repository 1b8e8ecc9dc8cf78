package booking

import (
	"strings"
	"time"

	"github.com/hieunguyenzzz/meraki-erpnext-sub001/internal/clients/erpnext"
)

// Store doctypes participating in the booking aggregate.
const (
	DoctypeCustomer     = "Customer"
	DoctypeContact      = "Contact"
	DoctypeItem         = "Item"
	DoctypeSalesOrder   = "Sales Order"
	DoctypeSalesInvoice = "Sales Invoice"
	DoctypePaymentEntry = "Payment Entry"
	DoctypeProject      = "Project"
	DoctypeGLEntry      = "GL Entry"
)

// Custom fields carried on store documents.
const (
	FieldVenue        = "custom_venue"
	FieldStage        = "custom_stage"
	FieldInCommission = "custom_in_commission"
	FieldLead         = "custom_lead"
	FieldSupport      = "custom_support"
	FieldAssistant1   = "custom_assistant_1"
	FieldAssistant2   = "custom_assistant_2"
	FieldAssistant3   = "custom_assistant_3"
	FieldAssistant4   = "custom_assistant_4"
	FieldAssistant5   = "custom_assistant_5"
)

// AddOn is one optional package extra. Opt-out add-ons still count toward the
// order total but never toward the commission base.
type AddOn struct {
	ItemName            string  `json:"item_name"`
	Price               float64 `json:"price"`
	Qty                 float64 `json:"qty"`
	IncludeInCommission bool    `json:"include_in_commission"`
}

// OrderLine is one row of the order's child items table.
type OrderLine struct {
	RowName             string  `json:"row_name"` // child-row identity within the order
	ItemCode            string  `json:"item_code"`
	ItemName            string  `json:"item_name"`
	Qty                 float64 `json:"qty"`
	Rate                float64 `json:"rate"`
	Amount              float64 `json:"amount"`
	BilledAmount        float64 `json:"billed_amount"`
	IncludeInCommission bool    `json:"include_in_commission"`
}

type Order struct {
	Name             string
	Customer         string
	Status           OrderStatus
	DocStatus        int
	Total            float64
	GrandTotal       float64
	PercentBilled    float64
	PercentDelivered float64
	Venue            string
	EventDate        time.Time
	Lines            []OrderLine
	Created          time.Time
}

// RemainingBalance is what is still billable against this order.
func (o Order) RemainingBalance() float64 {
	return o.GrandTotal * (100 - o.PercentBilled) / 100
}

type Invoice struct {
	Name        string
	DocStatus   int
	GrandTotal  float64
	Outstanding float64
	PostingDate string
	Created     time.Time
}

type Payment struct {
	Name      string
	DocStatus int
	Paid      float64
}

// TeamAssignments are the employee references written onto the Project.
// Last write wins; billing state never constrains a team change.
type TeamAssignments struct {
	Lead       string    `json:"lead"`
	Support    string    `json:"support"`
	Assistants [5]string `json:"assistants"`
}

func (t TeamAssignments) Fields() erpnext.Document {
	return erpnext.Document{
		FieldLead:       t.Lead,
		FieldSupport:    t.Support,
		FieldAssistant1: t.Assistants[0],
		FieldAssistant2: t.Assistants[1],
		FieldAssistant3: t.Assistants[2],
		FieldAssistant4: t.Assistants[3],
		FieldAssistant5: t.Assistants[4],
	}
}

type Project struct {
	Name        string
	ProjectName string
	Customer    string
	SalesOrder  string
	Stage       string
	Team        TeamAssignments
}

// Booking is the aggregate for one customer engagement. Its ID is the sales
// order name; everything else is resolved from the store on demand.
type Booking struct {
	ID       string
	Order    Order
	Project  Project
	Invoices []Invoice
}

func OrderFromDocument(doc erpnext.Document) Order {
	o := Order{
		Name:             doc.Str("name"),
		Customer:         doc.Str("customer"),
		Status:           NormalizeStatus(doc.Str("status")),
		DocStatus:        doc.Int("docstatus"),
		Total:            doc.F64("total"),
		GrandTotal:       doc.F64("grand_total"),
		PercentBilled:    doc.F64("per_billed"),
		PercentDelivered: doc.F64("per_delivered"),
		Venue:            doc.Str(FieldVenue),
		EventDate:        doc.Time("delivery_date"),
		Created:          doc.Time("creation"),
	}
	for _, row := range doc.Docs("items") {
		o.Lines = append(o.Lines, OrderLine{
			RowName:             row.Str("name"),
			ItemCode:            row.Str("item_code"),
			ItemName:            row.Str("item_name"),
			Qty:                 row.F64("qty"),
			Rate:                row.F64("rate"),
			Amount:              row.F64("amount"),
			BilledAmount:        row.F64("billed_amt"),
			IncludeInCommission: row.Bool(FieldInCommission),
		})
	}
	return o
}

func InvoiceFromDocument(doc erpnext.Document) Invoice {
	return Invoice{
		Name:        doc.Str("name"),
		DocStatus:   doc.Int("docstatus"),
		GrandTotal:  doc.F64("grand_total"),
		Outstanding: doc.F64("outstanding_amount"),
		PostingDate: doc.Str("posting_date"),
		Created:     doc.Time("creation"),
	}
}

func PaymentFromDocument(doc erpnext.Document) Payment {
	return Payment{
		Name:      doc.Str("name"),
		DocStatus: doc.Int("docstatus"),
		Paid:      doc.F64("paid_amount"),
	}
}

func ProjectFromDocument(doc erpnext.Document) Project {
	return Project{
		Name:        doc.Str("name"),
		ProjectName: doc.Str("project_name"),
		Customer:    doc.Str("customer"),
		SalesOrder:  doc.Str("sales_order"),
		Stage:       doc.Str(FieldStage),
		Team: TeamAssignments{
			Lead:    doc.Str(FieldLead),
			Support: doc.Str(FieldSupport),
			Assistants: [5]string{
				doc.Str(FieldAssistant1),
				doc.Str(FieldAssistant2),
				doc.Str(FieldAssistant3),
				doc.Str(FieldAssistant4),
				doc.Str(FieldAssistant5),
			},
		},
	}
}

// NormalizeName trims a store document name for comparisons.
func NormalizeName(name string) string {
	return strings.TrimSpace(name)
}
