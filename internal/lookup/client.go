// Package lookup queries the RENIEC/SUNAT aggregator API for the identity
// behind a DNI or RUC.
package lookup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

var ErrNotFound = errors.New("document not found")

// Identity is the subset of registry data printed on invoices.
type Identity struct {
	DocumentNumber string
	Name           string
	Address        string
}

type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

func NewClient(baseURL, token string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type dniResponse struct {
	Nombres         string `json:"nombres"`
	ApellidoPaterno string `json:"apellidoPaterno"`
	ApellidoMaterno string `json:"apellidoMaterno"`
	NumeroDocumento string `json:"numeroDocumento"`
}

type rucResponse struct {
	RazonSocial     string `json:"razonSocial"`
	NumeroDocumento string `json:"numeroDocumento"`
	Direccion       string `json:"direccion"`
	Estado          string `json:"estado"`
	Condicion       string `json:"condicion"`
}

// DNI looks a national ID up in RENIEC.
func (c *Client) DNI(ctx context.Context, number string) (*Identity, error) {
	var resp dniResponse
	if err := c.get(ctx, "/reniec/dni", number, &resp); err != nil {
		return nil, err
	}
	name := strings.Join(strings.Fields(strings.Join(
		[]string{resp.Nombres, resp.ApellidoPaterno, resp.ApellidoMaterno}, " ")), " ")
	if name == "" {
		return nil, ErrNotFound
	}
	return &Identity{DocumentNumber: number, Name: name}, nil
}

// RUC looks a tax ID up in SUNAT.
func (c *Client) RUC(ctx context.Context, number string) (*Identity, error) {
	var resp rucResponse
	if err := c.get(ctx, "/sunat/ruc", number, &resp); err != nil {
		return nil, err
	}
	if resp.RazonSocial == "" {
		return nil, ErrNotFound
	}
	return &Identity{
		DocumentNumber: number,
		Name:           strings.TrimSpace(resp.RazonSocial),
		Address:        strings.TrimSpace(resp.Direccion),
	}, nil
}

func (c *Client) get(ctx context.Context, path, number string, out any) error {
	endpoint := fmt.Sprintf("%s%s?numero=%s", c.baseURL, path, url.QueryEscape(number))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("build lookup request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("lookup request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("lookup returned %d: %s", resp.StatusCode, body)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode lookup response: %w", err)
	}
	return nil
}
