package indiapost

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/BearBump/TrackSync/internal/integrations/provider"
	"github.com/BearBump/TrackSync/internal/models"
	"github.com/pkg/errors"
)

const DefaultBaseURL = "https://indiapost-tracker-service-production.up.railway.app"

type Client struct {
	baseURL string
	httpc   *http.Client
}

func New(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		httpc: &http.Client{
			Timeout: timeout,
		},
	}
}

type respEvent struct {
	Date     string  `json:"date"`
	Time     *string `json:"time,omitempty"`
	Office   *string `json:"office,omitempty"`
	Event    string  `json:"event"`
	Location *string `json:"location,omitempty"`
}

type respData struct {
	TrackingNumber string      `json:"trackingNumber"`
	Status         string      `json:"status"`
	Origin         *string     `json:"origin,omitempty"`
	Destination    *string     `json:"destination,omitempty"`
	BookedOn       *string     `json:"bookedOn,omitempty"`
	DeliveredOn    *string     `json:"deliveredOn,omitempty"`
	ArticleType    *string     `json:"articleType,omitempty"`
	Events         []respEvent `json:"events"`
}

type bulkReq struct {
	TrackingNumbers []string `json:"trackingNumbers"`
}

type bulkResp struct {
	Results []struct {
		TrackingNumber string          `json:"trackingNumber"`
		Success        bool            `json:"success"`
		Data           json.RawMessage `json:"data,omitempty"`
		Error          string          `json:"error,omitempty"`
	} `json:"results"`
}

func (c *Client) FetchOne(ctx context.Context, trackingNumber string) provider.Result {
	u, err := c.endpoint("track", url.PathEscape(trackingNumber))
	if err != nil {
		return provider.Failed(trackingNumber, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return provider.Failed(trackingNumber, errors.Wrap(err, "new request"))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return provider.Failed(trackingNumber, errors.Wrap(err, "do request"))
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return provider.Failed(trackingNumber, fmt.Errorf("API returned status %d", resp.StatusCode))
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return provider.Failed(trackingNumber, errors.Wrap(err, "read body"))
	}
	p, err := decodePayload(trackingNumber, body)
	if err != nil {
		return provider.Failed(trackingNumber, err)
	}
	return provider.Succeeded(p)
}

// FetchBulk вызывает пакетный endpoint; если он недоступен — параллельно
// опрашивает номера по одному.
func (c *Client) FetchBulk(ctx context.Context, trackingNumbers []string) ([]provider.Result, error) {
	out, err := c.fetchBulk(ctx, trackingNumbers)
	if err == nil {
		return out, nil
	}
	if ctx.Err() != nil {
		return nil, err
	}
	return provider.FetchEach(ctx, c, trackingNumbers), nil
}

func (c *Client) fetchBulk(ctx context.Context, trackingNumbers []string) ([]provider.Result, error) {
	u, err := c.endpoint("track", "bulk")
	if err != nil {
		return nil, err
	}

	b, err := json.Marshal(bulkReq{TrackingNumbers: trackingNumbers})
	if err != nil {
		return nil, errors.Wrap(err, "marshal bulk request")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), bytes.NewReader(b))
	if err != nil {
		return nil, errors.Wrap(err, "new request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "do bulk request")
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("bulk API returned status %d", resp.StatusCode)
	}
	var br bulkResp
	if err := json.NewDecoder(resp.Body).Decode(&br); err != nil {
		return nil, errors.Wrap(err, "decode bulk")
	}

	out := make([]provider.Result, 0, len(br.Results))
	for _, r := range br.Results {
		num := models.NormalizeTrackingNumber(r.TrackingNumber)
		if !r.Success || len(r.Data) == 0 || string(r.Data) == "null" {
			msg := r.Error
			if msg == "" {
				msg = "provider returned no data"
			}
			out = append(out, provider.Failed(num, errors.New(msg)))
			continue
		}
		p, err := decodePayload(num, r.Data)
		if err != nil {
			out = append(out, provider.Failed(num, err))
			continue
		}
		out = append(out, provider.Succeeded(p))
	}
	return out, nil
}

// endpoint дописывает сегменты к пути baseURL; сегменты уже экранированы.
func (c *Client) endpoint(segments ...string) (*url.URL, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, errors.Wrap(err, "parse base url")
	}
	return u.JoinPath(segments...), nil
}

func decodePayload(trackingNumber string, raw []byte) (*models.ProviderPayload, error) {
	var d respData
	if err := json.Unmarshal(raw, &d); err != nil {
		return nil, errors.Wrap(err, "decode tracking data")
	}
	events := make([]models.TrackingEvent, 0, len(d.Events))
	for _, e := range d.Events {
		events = append(events, models.TrackingEvent{
			Date:     e.Date,
			Time:     e.Time,
			Office:   e.Office,
			Event:    e.Event,
			Location: e.Location,
		})
	}
	return &models.ProviderPayload{
		TrackingNumber: trackingNumber,
		Status:         d.Status,
		Origin:         d.Origin,
		Destination:    d.Destination,
		BookedOn:       d.BookedOn,
		DeliveredOn:    d.DeliveredOn,
		ArticleType:    d.ArticleType,
		Events:         events,
		Raw:            json.RawMessage(append([]byte(nil), raw...)),
	}, nil
}
