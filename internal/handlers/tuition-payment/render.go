package tuitionpayment

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"net/url"

	"tuition-checkout/internal/tuition"
)

//go:embed templates/*.html
var templateFS embed.FS

const (
	pageLookup    = "lookup.html"
	pageSelection = "selection.html"
	pageSummary   = "summary.html"
	pageInfo      = "info.html"
)

// Renderer executes the embedded HTML pages. It is safe for concurrent use.
type Renderer struct {
	pages map[string]*template.Template
}

func NewRenderer() (*Renderer, error) {
	r := &Renderer{pages: map[string]*template.Template{}}
	for _, page := range []string{pageLookup, pageSelection, pageSummary, pageInfo} {
		t, err := template.New(page).ParseFS(templateFS, "templates/layout.html", "templates/"+page)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", page, err)
		}
		r.pages[page] = t
	}
	return r, nil
}

type layoutData struct {
	Title string
	Body  any
}

type lookupView struct {
	Email string
}

type selectionView struct {
	Email string
	Deals []selectionRow
}

type selectionRow struct {
	Name      string
	Remaining string
	URL       string
}

type summaryView struct {
	DealName   string
	Tuition    string
	Paid       string
	PaidSource string
	Remaining  string
	FullyPaid  bool
	Unknown    bool
	Cancelled  bool
	FeePercent string
	Payments   []paymentRow
	Options    []optionRow
	Custom     *customForm
	LookupURL  string
}

type paymentRow struct {
	Slot          int
	Amount        string
	TransactionID string
	Date          string
}

type optionRow struct {
	Label string
	Base  string
	Fee   string
	Total string
	URL   string
}

type customForm struct {
	DealID string
	Email  string
	Min    string
	Max    string
}

type infoView struct {
	Heading  string
	Message  string
	LinkURL  string
	LinkText string
}

// Lookup renders a LookupOutput as a full page with the given status code.
func (r *Renderer) Lookup(w http.ResponseWriter, status int, out *LookupOutput) error {
	switch out.View {
	case ViewLookupForm:
		return r.execute(w, status, pageLookup, "Find your enrollment", lookupView{Email: out.Email})
	case ViewSelection:
		return r.execute(w, status, pageSelection, "Choose an enrollment", selectionFrom(out))
	case ViewSummary:
		return r.execute(w, status, pageSummary, out.Summary.Name, summaryFrom(out.Summary, out.Email))
	case ViewSuccess:
		return r.execute(w, status, pageInfo, "Payment received", infoView{
			Heading:  "Thank you for your payment",
			Message:  "Your payment was submitted. It can take a few minutes to appear on your balance.",
			LinkURL:  pageURL(out.DealID, out.Email),
			LinkText: "View your balance",
		})
	case ViewCancelled:
		return r.execute(w, status, pageInfo, "Payment cancelled", infoView{
			Heading:  "Payment cancelled",
			Message:  "No payment was taken.",
			LinkURL:  pageURL("", out.Email),
			LinkText: "Back to your enrollment",
		})
	default:
		return fmt.Errorf("unknown view %q", out.View)
	}
}

// NotFound renders the not-found page for a lookup or checkout miss.
func (r *Renderer) NotFound(w http.ResponseWriter, message string) error {
	return r.execute(w, http.StatusNotFound, pageInfo, "Not found", infoView{
		Heading:  "Not found",
		Message:  message,
		LinkURL:  "?",
		LinkText: "Search again",
	})
}

func (r *Renderer) execute(w http.ResponseWriter, status int, page, title string, body any) error {
	t, ok := r.pages[page]
	if !ok {
		return fmt.Errorf("unknown page %q", page)
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", layoutData{Title: title, Body: body}); err != nil {
		return fmt.Errorf("render %s: %w", page, err)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err
}

func selectionFrom(out *LookupOutput) selectionView {
	v := selectionView{Email: out.Email}
	for _, d := range out.Deals {
		v.Deals = append(v.Deals, selectionRow{
			Name:      d.Name,
			Remaining: tuition.FormatAmount(d.Remaining),
			URL:       pageURL(d.DealID, out.Email),
		})
	}
	return v
}

func summaryFrom(s *DealSummary, email string) summaryView {
	tuitionAmount, paid, remaining := s.SummaryTotals()
	v := summaryView{
		DealName:   s.Name,
		Tuition:    tuitionAmount,
		Paid:       paid,
		PaidSource: "itemized payments",
		Remaining:  remaining,
		FullyPaid:  s.Balance.FullyPaid(),
		Unknown:    !s.Balance.Remaining.Valid,
		Cancelled:  s.Cancelled,
		FeePercent: s.FeePercent(),
		LookupURL:  pageURL("", email),
	}
	if s.Balance.PaidFromRollup {
		v.PaidSource = "recorded total"
	}

	for _, p := range s.Balance.Payments {
		v.Payments = append(v.Payments, paymentRow{
			Slot:          p.Slot,
			Amount:        p.Amount.StringFixed(2),
			TransactionID: p.TransactionID,
			Date:          p.Date,
		})
	}

	for _, o := range s.Options {
		v.Options = append(v.Options, optionRow{
			Label: o.Label,
			Base:  o.Base.StringFixed(2),
			Fee:   o.Fee.StringFixed(2),
			Total: o.Total.StringFixed(2),
			URL:   checkoutURL(s.DealID, email, o.Type),
		})
	}

	if s.Offers.Custom {
		v.Custom = &customForm{
			DealID: s.DealID,
			Email:  email,
			Min:    s.Offers.CustomMin.RoundCeil(2).StringFixed(2),
			Max:    s.Offers.CustomMax.Truncate(2).StringFixed(2),
		}
	}
	return v
}

// pageURL is a relative link to the lookup flow; an empty dealID links to the
// contact's deal list or the lookup form.
func pageURL(dealID, email string) string {
	q := url.Values{}
	if dealID != "" {
		q.Set(ParamDealID, dealID)
	}
	if email != "" {
		q.Set(ParamEmail, email)
	}
	return "?" + q.Encode()
}

func checkoutURL(dealID, email string, t tuition.PaymentType) string {
	q := url.Values{}
	q.Set(ParamCheckout, "1")
	q.Set(ParamDealID, dealID)
	q.Set(ParamType, string(t))
	if email != "" {
		q.Set(ParamEmail, email)
	}
	return "?" + q.Encode()
}
