package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"taller-backend/internal/models"
)

// Client resolves an 8-digit DNI to the owner's full name through the
// external identity API. Input validation happens in the caller; the client
// issues the request exactly as given and never retries.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL: baseURL,
		token:   token,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

type lookupResponse struct {
	Success bool `json:"success"`
	Data    struct {
		NombreCompleto string `json:"nombre_completo"`
	} `json:"data"`
}

// NombrePorDNI returns the registered full name for the given DNI. Any
// transport failure, non-2xx status or unmatched DNI is a *models.LookupError.
func (c *Client) NombrePorDNI(ctx context.Context, dni string) (string, error) {
	url := fmt.Sprintf("%s/v1/dni/info/%s", c.baseURL, dni)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", &models.LookupError{DNI: dni, Reason: "build request", Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &models.LookupError{DNI: dni, Reason: "identity service unreachable", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &models.LookupError{
			DNI:    dni,
			Reason: fmt.Sprintf("identity service returned status %d", resp.StatusCode),
		}
	}

	var body lookupResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", &models.LookupError{DNI: dni, Reason: "malformed response", Err: err}
	}

	if !body.Success || body.Data.NombreCompleto == "" {
		return "", &models.LookupError{DNI: dni, Reason: "no data found for this DNI"}
	}

	return body.Data.NombreCompleto, nil
}
