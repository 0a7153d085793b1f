package orders

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

var _ Client = (*AfterbuyClient)(nil)

// Credentials holds the partner/account tokens required by the AfterBuy
// XML interface.
type Credentials struct {
	PartnerID    string
	PartnerToken string
	AccountToken string
	UserID       string
	UserPassword string
}

// AfterbuyClient looks orders up through the AfterBuy GetSoldItems call.
type AfterbuyClient struct {
	endpoint   string
	creds      Credentials
	httpClient *http.Client
}

// NewAfterbuyClient creates a client for the given endpoint and credentials.
func NewAfterbuyClient(endpoint string, creds Credentials) *AfterbuyClient {
	return &AfterbuyClient{
		endpoint: endpoint,
		creds:    creds,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// withTimeout wraps the context with a timeout if it doesn't already have one.
func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, d)
}

// request/response wire types for the GetSoldItems call.

type soldItemsRequest struct {
	XMLName xml.Name       `xml:"Request"`
	Global  afterbuyGlobal `xml:"AfterbuyGlobal"`
	Filter  dataFilter     `xml:"DataFilter"`
}

type afterbuyGlobal struct {
	PartnerID     string `xml:"PartnerID"`
	PartnerToken  string `xml:"PartnerToken"`
	AccountToken  string `xml:"AccountToken"`
	UserID        string `xml:"UserID"`
	UserPassword  string `xml:"UserPassword"`
	CallName      string `xml:"CallName"`
	DetailLevel   int    `xml:"DetailLevel"`
	ErrorLanguage string `xml:"ErrorLanguage"`
}

type dataFilter struct {
	Filter struct {
		FilterName   string `xml:"FilterName"`
		FilterValues struct {
			FilterValue string `xml:"FilterValue"`
		} `xml:"FilterValues"`
	} `xml:"Filter"`
}

type soldItemsResponse struct {
	XMLName    xml.Name `xml:"Afterbuy"`
	CallStatus string   `xml:"CallStatus"`
	Result     struct {
		Orders []soldOrder `xml:"Orders>Order"`
	} `xml:"Result"`
}

type soldOrder struct {
	OrderID        string `xml:"OrderID"`
	InvoiceNumber  string `xml:"InvoiceNumber"`
	OrderDate      string `xml:"OrderDate"`
	Memo           string `xml:"Memo"`
	BillingAddress struct {
		FirstName  string `xml:"FirstName"`
		LastName   string `xml:"LastName"`
		CountryISO string `xml:"CountryISO"`
	} `xml:"BillingAddress"`
	PaymentInfo struct {
		AlreadyPaid string `xml:"AlreadyPaid"`
		FullAmount  string `xml:"FullAmount"`
	} `xml:"PaymentInfo"`
}

// GetOrder implements Client.GetOrder by posting a GetSoldItems request
// filtered on the order id.
func (c *AfterbuyClient) GetOrder(ctx context.Context, orderNumber string) (*Record, error) {
	ctx, cancel := withTimeout(ctx, 10*time.Second)
	defer cancel()

	reqBody := soldItemsRequest{
		Global: afterbuyGlobal{
			PartnerID:     c.creds.PartnerID,
			PartnerToken:  c.creds.PartnerToken,
			AccountToken:  c.creds.AccountToken,
			UserID:        c.creds.UserID,
			UserPassword:  c.creds.UserPassword,
			CallName:      "GetSoldItems",
			DetailLevel:   1,
			ErrorLanguage: "DE",
		},
	}
	reqBody.Filter.Filter.FilterName = "OrderID"
	reqBody.Filter.Filter.FilterValues.FilterValue = orderNumber

	payload, err := xml.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal order request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint,
		bytes.NewReader(append([]byte(xml.Header), payload...)))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "text/xml")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return nil, fmt.Errorf("order lookup timeout or canceled: %w", err)
		}
		return nil, fmt.Errorf("order lookup request failed: %w", err)
	}
	defer resp.Body.Close()

	rawBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read order response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("order system returned non-2xx status: %d", resp.StatusCode)
	}

	return parseSoldItems(rawBytes)
}

// parseSoldItems normalizes the GetSoldItems XML into a Record.
func parseSoldItems(raw []byte) (*Record, error) {
	var parsed soldItemsResponse
	if err := xml.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse order response: %w", err)
	}

	if parsed.CallStatus != "Success" {
		return nil, fmt.Errorf("order call status %q: %w", parsed.CallStatus, ErrNotFound)
	}
	if len(parsed.Result.Orders) == 0 {
		return nil, ErrNotFound
	}

	o := parsed.Result.Orders[0]
	rec := &Record{
		OrderNumber:   strings.TrimSpace(o.OrderID),
		InvoiceNumber: strings.TrimSpace(o.InvoiceNumber),
		CountryCode:   strings.TrimSpace(o.BillingAddress.CountryISO),
		FirstName:     strings.TrimSpace(o.BillingAddress.FirstName),
		LastName:      strings.TrimSpace(o.BillingAddress.LastName),
		AlreadyPaid:   strings.TrimSpace(o.PaymentInfo.AlreadyPaid),
		FullAmount:    strings.TrimSpace(o.PaymentInfo.FullAmount),
		Memo:          o.Memo,
	}

	if t, ok := parseOrderDate(o.OrderDate); ok {
		rec.OrderDate = &t
	}

	return rec, nil
}

// parseOrderDate accepts the "DD.MM.YYYY hh:mm:ss" form AfterBuy emits;
// the time-of-day part is optional.
func parseOrderDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if i := strings.IndexByte(s, ' '); i > 0 {
		s = s[:i]
	}
	t, err := time.Parse("02.01.2006", s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// Health implements Client.Health with a lightweight GET against the endpoint.
func (c *AfterbuyClient) Health(ctx context.Context) error {
	ctx, cancel := withTimeout(ctx, 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint, nil)
	if err != nil {
		return fmt.Errorf("health: failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return fmt.Errorf("health: request timeout or canceled: %w", err)
		}
		return fmt.Errorf("health: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 500 {
		return fmt.Errorf("health: unexpected status: %d", resp.StatusCode)
	}

	return nil
}
