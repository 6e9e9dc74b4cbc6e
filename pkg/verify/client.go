// Package verify talks to the national identity registry used to re-validate
// patient records that were flagged during registration.
package verify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/andes-k8s/api/pkg/common/httpclient"
	"github.com/andes-k8s/api/pkg/match"
	"github.com/andes-k8s/api/pkg/mpi"
	"golang.org/x/oauth2/clientcredentials"
)

type Options struct {
	BaseURL      string
	TokenURL     string
	ClientID     string
	ClientSecret string
	Source       string
	Timeout      time.Duration
}

// Client implements mpi.Verifier against the registry's match endpoint.
type Client struct {
	http    *http.Client
	baseURL string
	source  string
}

// NewClient builds the verifier client. When a token URL is configured the
// underlying transport obtains and refreshes client-credentials tokens
// transparently.
func NewClient(opts Options) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	base := httpclient.New(timeout)
	if opts.TokenURL != "" {
		cc := clientcredentials.Config{
			ClientID:     opts.ClientID,
			ClientSecret: opts.ClientSecret,
			TokenURL:     opts.TokenURL,
		}
		base = cc.Client(context.Background())
		base.Timeout = timeout
	}

	source := opts.Source
	if source == "" {
		source = "Sisa"
	}

	return &Client{http: base, baseURL: opts.BaseURL, source: source}
}

type matchRequest struct {
	Documento       string `json:"documento"`
	Nombre          string `json:"nombre"`
	Apellido        string `json:"apellido"`
	FechaNacimiento string `json:"fechaNacimiento,omitempty"`
	Sexo            string `json:"sexo,omitempty"`
}

type matchResponse struct {
	Matcheo       float64 `json:"matcheo"`
	DatosPaciente *struct {
		Documento string `json:"documento"`
		Nombre    string `json:"nombre"`
		Apellido  string `json:"apellido"`
		Sexo      string `json:"sexo"`
	} `json:"datosPaciente"`
}

// Verify asks the registry for the best candidate for the given identity and
// its match percentage. Transport-level and server-side failures map to
// mpi.ErrVerifierUnavailable so the caller retries on a later run.
func (c *Client) Verify(ctx context.Context, identity mpi.PatientIdentity) (*mpi.VerifyResult, error) {
	payload := matchRequest{
		Documento:       identity.Documento,
		Nombre:          identity.Nombre,
		Apellido:        identity.Apellido,
		FechaNacimiento: match.FormatDate(identity.FechaNacimiento),
		Sexo:            string(identity.Sexo),
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	var parsed matchResponse
	var found bool
	call := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/match", bytes.NewReader(body))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusNotFound:
			found = false
			return nil
		case resp.StatusCode >= 500:
			return fmt.Errorf("registry answered %d", resp.StatusCode)
		case resp.StatusCode != http.StatusOK:
			return fmt.Errorf("registry rejected request: %d", resp.StatusCode)
		}

		if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
			return err
		}
		found = true
		return nil
	}

	if err := httpclient.Retry(ctx, 3, 200*time.Millisecond, call); err != nil {
		return nil, fmt.Errorf("%w: %v", mpi.ErrVerifierUnavailable, err)
	}
	if !found || parsed.DatosPaciente == nil {
		return nil, nil
	}

	return &mpi.VerifyResult{
		Confidence: parsed.Matcheo,
		Source:     c.source,
		Matched: mpi.PatientIdentity{
			Documento: parsed.DatosPaciente.Documento,
			Nombre:    parsed.DatosPaciente.Nombre,
			Apellido:  parsed.DatosPaciente.Apellido,
			Sexo:      mpi.Sexo(parsed.DatosPaciente.Sexo),
		},
	}, nil
}
