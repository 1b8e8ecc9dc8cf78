package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/hieunguyenzzz/meraki-erpnext-sub001/internal/clients/erpnext"
	"github.com/hieunguyenzzz/meraki-erpnext-sub001/internal/domain/booking"
)

// fakeStore is an in-memory stand-in for the ERPNext client. It mimics the
// store-side behavior the orchestrator depends on: name generation, ledger
// rows appearing on submit, billing percentage advancing with invoices,
// delete refusing while ledger rows reference the voucher.
type fakeStore struct {
	docs  map[string]map[string]erpnext.Document
	seq   map[string]int
	clock int

	// calls records every mutating operation as "Op Doctype Name".
	calls []string

	// failOn injects an error for an op key: "Submit Payment Entry" matches
	// every payment submit, "Delete Sales Invoice ACC-SINV-0001" one doc.
	failOn map[string]error

	// onInvoiceSubmit lets a test adjust a just-submitted invoice the way
	// store-side tax/rounding rules would.
	onInvoiceSubmit func(doc erpnext.Document)
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		docs:   map[string]map[string]erpnext.Document{},
		seq:    map[string]int{},
		failOn: map[string]error{},
	}
}

func storeRejection(status int, excType, msg string) *erpnext.HTTPError {
	return &erpnext.HTTPError{StatusCode: status, ExcType: excType, Message: msg}
}

func notFoundErr(doctype, name string) *erpnext.HTTPError {
	return storeRejection(404, "DoesNotExistError", fmt.Sprintf("%s %s not found", doctype, name))
}

func (f *fakeStore) record(op, doctype, name string) {
	f.calls = append(f.calls, strings.TrimSpace(fmt.Sprintf("%s %s %s", op, doctype, name)))
}

func (f *fakeStore) injected(op, doctype, name string) error {
	if err, ok := f.failOn[op+" "+doctype+" "+name]; ok {
		return err
	}
	if err, ok := f.failOn[op+" "+doctype]; ok {
		return err
	}
	return nil
}

func (f *fakeStore) tick() string {
	f.clock++
	return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC).
		Add(time.Duration(f.clock) * time.Second).
		Format("2006-01-02 15:04:05.000000")
}

func namePrefix(doctype string) string {
	switch doctype {
	case booking.DoctypeCustomer:
		return "CUST"
	case booking.DoctypeContact:
		return "CONTACT"
	case booking.DoctypeSalesOrder:
		return "SO"
	case booking.DoctypeSalesInvoice:
		return "ACC-SINV"
	case booking.DoctypePaymentEntry:
		return "PE"
	case booking.DoctypeProject:
		return "PROJ"
	case booking.DoctypeGLEntry:
		return "GL"
	default:
		return "DOC"
	}
}

func (f *fakeStore) table(doctype string) map[string]erpnext.Document {
	t, ok := f.docs[doctype]
	if !ok {
		t = map[string]erpnext.Document{}
		f.docs[doctype] = t
	}
	return t
}

func (f *fakeStore) Create(ctx context.Context, doctype string, doc erpnext.Document) (string, error) {
	if err := f.injected("Create", doctype, ""); err != nil {
		return "", err
	}
	name := doc.Str("name")
	if name == "" {
		if doctype == booking.DoctypeItem {
			name = doc.Str("item_code")
		} else {
			f.seq[doctype]++
			name = fmt.Sprintf("%s-%04d", namePrefix(doctype), f.seq[doctype])
		}
	}
	stored := erpnext.Document{}
	for k, v := range doc {
		stored[k] = v
	}
	stored["name"] = name
	stored["docstatus"] = 0
	stored["creation"] = f.tick()

	if doctype == booking.DoctypeSalesOrder || doctype == booking.DoctypeSalesInvoice {
		f.recomputeTotals(stored)
	}
	if doctype == booking.DoctypeSalesOrder {
		stored["status"] = string(booking.StatusDraft)
		stored["per_billed"] = 0.0
		stored["per_delivered"] = 0.0
	}
	f.table(doctype)[name] = stored
	f.record("Create", doctype, name)
	return name, nil
}

// recomputeTotals keeps totals in sync with the child items table and
// assigns row names to new child rows.
func (f *fakeStore) recomputeTotals(doc erpnext.Document) {
	total := 0.0
	rows := doc.Docs("items")
	for i, row := range rows {
		if row.Str("name") == "" {
			row["name"] = fmt.Sprintf("%s-row-%d", doc.Str("name"), i+1)
		}
		qty := row.F64("qty")
		if qty <= 0 {
			qty = 1
			row["qty"] = 1.0
		}
		amount := qty * row.F64("rate")
		row["amount"] = amount
		total += amount
	}
	doc["items"] = rows
	doc["total"] = total
	doc["grand_total"] = total
}

func (f *fakeStore) Get(ctx context.Context, doctype, name string) (erpnext.Document, error) {
	if err := f.injected("Get", doctype, name); err != nil {
		return nil, err
	}
	doc, ok := f.table(doctype)[name]
	if !ok {
		return nil, notFoundErr(doctype, name)
	}
	return doc, nil
}

func (f *fakeStore) List(ctx context.Context, doctype string, filters erpnext.Filters, fields []string) ([]erpnext.Document, error) {
	if err := f.injected("List", doctype, ""); err != nil {
		return nil, err
	}
	var out []erpnext.Document
	for _, doc := range f.table(doctype) {
		match := true
		for field, want := range filters {
			if doc.Str(field) != fmt.Sprintf("%v", want) {
				match = false
				break
			}
		}
		if match {
			out = append(out, doc)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Str("creation") < out[j].Str("creation")
	})
	return out, nil
}

func (f *fakeStore) Update(ctx context.Context, doctype, name string, fields erpnext.Document) error {
	if err := f.injected("Update", doctype, name); err != nil {
		return err
	}
	doc, ok := f.table(doctype)[name]
	if !ok {
		return notFoundErr(doctype, name)
	}
	for k, v := range fields {
		doc[k] = v
	}
	f.record("Update", doctype, name)
	return nil
}

func (f *fakeStore) Submit(ctx context.Context, doctype, name string) error {
	if err := f.injected("Submit", doctype, name); err != nil {
		return err
	}
	doc, ok := f.table(doctype)[name]
	if !ok {
		return notFoundErr(doctype, name)
	}
	if doc.Int("docstatus") != 0 {
		return storeRejection(409, "DocstatusTransitionError", "cannot submit a non-draft document")
	}
	doc["docstatus"] = 1
	f.record("Submit", doctype, name)

	switch doctype {
	case booking.DoctypeSalesOrder:
		doc["status"] = string(booking.StatusToBill)
	case booking.DoctypeSalesInvoice:
		doc["outstanding_amount"] = doc.F64("grand_total")
		if f.onInvoiceSubmit != nil {
			f.onInvoiceSubmit(doc)
		}
		f.appendLedgerRows(doctype, name)
		f.advanceBilling(doc.Str("custom_sales_order"), doc.F64("grand_total"))
	case booking.DoctypePaymentEntry:
		f.appendLedgerRows(doctype, name)
		for _, ref := range doc.Docs("references") {
			if inv, ok := f.table(booking.DoctypeSalesInvoice)[ref.Str("reference_name")]; ok {
				inv["outstanding_amount"] = inv.F64("outstanding_amount") - ref.F64("allocated_amount")
			}
		}
	}
	return nil
}

func (f *fakeStore) appendLedgerRows(voucherType, voucherNo string) {
	for i := 0; i < 2; i++ {
		f.seq[booking.DoctypeGLEntry]++
		name := fmt.Sprintf("GL-%04d", f.seq[booking.DoctypeGLEntry])
		f.table(booking.DoctypeGLEntry)[name] = erpnext.Document{
			"name":         name,
			"voucher_type": voucherType,
			"voucher_no":   voucherNo,
			"creation":     f.tick(),
		}
	}
}

func (f *fakeStore) advanceBilling(orderID string, amount float64) {
	order, ok := f.table(booking.DoctypeSalesOrder)[orderID]
	if !ok {
		return
	}
	grand := order.F64("grand_total")
	if grand <= 0 {
		return
	}
	percent := order.F64("per_billed") + amount/grand*100
	if percent > 100 {
		percent = 100
	}
	order["per_billed"] = percent
	order["status"] = string(booking.StatusForPercentBilled(percent))
	if rows := order.Docs("items"); len(rows) > 0 {
		rows[0]["billed_amt"] = rows[0].F64("billed_amt") + amount
	}
}

func (f *fakeStore) Cancel(ctx context.Context, doctype, name string) error {
	if err := f.injected("Cancel", doctype, name); err != nil {
		return err
	}
	doc, ok := f.table(doctype)[name]
	if !ok {
		return notFoundErr(doctype, name)
	}
	if doc.Int("docstatus") != 1 {
		return storeRejection(409, "DocstatusTransitionError", "cannot cancel a non-submitted document")
	}
	doc["docstatus"] = 2
	f.record("Cancel", doctype, name)

	if doctype == booking.DoctypeSalesInvoice {
		f.advanceBilling(doc.Str("custom_sales_order"), -doc.F64("grand_total"))
	}
	return nil
}

func (f *fakeStore) Delete(ctx context.Context, doctype, name string) error {
	if err := f.injected("Delete", doctype, name); err != nil {
		return err
	}
	doc, ok := f.table(doctype)[name]
	if !ok {
		return notFoundErr(doctype, name)
	}
	if doc.Int("docstatus") == 1 {
		return storeRejection(409, "DocstatusTransitionError", "cannot delete a submitted document")
	}
	if doctype != booking.DoctypeGLEntry {
		for _, gl := range f.table(booking.DoctypeGLEntry) {
			if gl.Str("voucher_no") == name {
				return storeRejection(409, "LinkExistsError", fmt.Sprintf("GL Entry %s references %s", gl.Str("name"), name))
			}
		}
	}
	delete(f.table(doctype), name)
	f.record("Delete", doctype, name)
	return nil
}

func (f *fakeStore) RunMethod(ctx context.Context, method string, args any, out any) error {
	if err := f.injected("RunMethod", method, ""); err != nil {
		return err
	}
	argMap, _ := args.(map[string]any)
	switch method {
	case "frappe.client.set_value":
		doctype := fmt.Sprintf("%v", argMap["doctype"])
		name := fmt.Sprintf("%v", argMap["name"])
		doc, ok := f.table(doctype)[name]
		if !ok {
			return notFoundErr(doctype, name)
		}
		doc[fmt.Sprintf("%v", argMap["fieldname"])] = argMap["value"]
		f.record("RunMethod set_value", doctype, name)
		return nil
	case "frappe.client.cancel":
		return f.Cancel(ctx, fmt.Sprintf("%v", argMap["doctype"]), fmt.Sprintf("%v", argMap["name"]))
	case updateChildItemsMethod:
		return f.updateChildItems(argMap)
	default:
		return storeRejection(404, "AttributeError", "unknown method "+method)
	}
}

func (f *fakeStore) updateChildItems(argMap map[string]any) error {
	parent := fmt.Sprintf("%v", argMap["parent_name"])
	order, ok := f.table(booking.DoctypeSalesOrder)[parent]
	if !ok {
		return notFoundErr(booking.DoctypeSalesOrder, parent)
	}
	items, _ := argMap["trans_items"].([]erpnext.Document)
	rows := order.Docs("items")
	for _, want := range items {
		docname := want.Str("docname")
		if docname != "" {
			for _, row := range rows {
				if row.Str("name") == docname {
					row["qty"] = want.F64("qty")
					row["rate"] = want.F64("rate")
					break
				}
			}
			continue
		}
		newRow := erpnext.Document{}
		for k, v := range want {
			newRow[k] = v
		}
		rows = append(rows, newRow)
	}
	order["items"] = rows
	f.recomputeTotals(order)
	f.record("RunMethod update_child_items", booking.DoctypeSalesOrder, parent)
	return nil
}
