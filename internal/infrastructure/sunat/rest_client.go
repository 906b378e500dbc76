package sunat

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/sony/gobreaker"
)

// URLs base de la API de comprobantes de pago electrónicos SUNAT.
const (
	baseURLBeta = "https://api-cpe-beta.sunat.gob.pe"
	baseURLProd = "https://api-cpe.sunat.gob.pe"

	// margen antes de la expiración real del token para renovarlo
	tokenExpirySkew = 60 * time.Second
)

// Config del cliente REST SUNAT.
type Config struct {
	Env          string // "beta" | "prod"
	ClientID     string
	ClientSecret string
	BaseURL      string        // opcional: sobreescribe la URL del ambiente (tests)
	Timeout      time.Duration // timeout por llamada; 0 = 30s
}

// RESTClient implementa DocumentGateway contra la API REST de SUNAT.
//
// La autenticación es OAuth2 client-credentials: el token se cachea con su
// expiración y se renueva de forma transparente. Todas las llamadas pasan por
// un circuit breaker: si SUNAT encadena fallos, los envíos fallan rápido y el
// reconciliador los retoma cuando el breaker cierra.
type RESTClient struct {
	cfg        Config
	baseURL    string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

var _ DocumentGateway = (*RESTClient)(nil)

// NewRESTClient construye el cliente para el ambiente configurado.
func NewRESTClient(cfg Config) *RESTClient {
	base := cfg.BaseURL
	if base == "" {
		if cfg.Env == AppEnvProd {
			base = baseURLProd
		} else {
			base = baseURLBeta
		}
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "sunat-gateway",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 5
		},
	})
	return &RESTClient{
		cfg:        cfg,
		baseURL:    strings.TrimRight(base, "/"),
		httpClient: &http.Client{Timeout: timeout},
		breaker:    cb,
	}
}

// ── OAuth2 ────────────────────────────────────────────────────────────────────

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// token devuelve un access token vigente, renovándolo si expiró o está por
// expirar. Serializa la renovación con el mutex para no pedir dos tokens en
// paralelo.
func (c *RESTClient) token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.accessToken != "" && time.Now().Before(c.tokenExpiry.Add(-tokenExpirySkew)) {
		return c.accessToken, nil
	}

	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("scope", "https://api-cpe.sunat.gob.pe")
	form.Set("client_id", c.cfg.ClientID)
	form.Set("client_secret", c.cfg.ClientSecret)

	endpoint := fmt.Sprintf("%s/v1/clientessol/%s/oauth2/token/", c.baseURL, c.cfg.ClientID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("sunat: crear request de token: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("sunat: obtener token: %w", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("sunat: token rechazado (HTTP %d): %s", resp.StatusCode, truncate(body, 200))
	}
	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return "", fmt.Errorf("sunat: parsear token: %w", err)
	}
	if tr.AccessToken == "" {
		return "", fmt.Errorf("sunat: respuesta de token sin access_token")
	}
	c.accessToken = tr.AccessToken
	c.tokenExpiry = time.Now().Add(time.Duration(tr.ExpiresIn) * time.Second)
	return c.accessToken, nil
}

// ── Envío de comprobantes ─────────────────────────────────────────────────────

type submitRequest struct {
	Archivo submitArchivo `json:"archivo"`
}

type submitArchivo struct {
	NomArchivo string `json:"nomArchivo"`
	ArcZip     string `json:"arcGreZip"` // ZIP en Base64
	HashZip    string `json:"hashZip"`   // SHA-256 hex del ZIP
}

type submitResponse struct {
	NumTicket string `json:"numTicket"`
}

// SubmitDocument envía el ZIP del comprobante firmado y devuelve el ticket.
func (c *RESTClient) SubmitDocument(ctx context.Context, zipBytes []byte, filename string) (*SubmitResult, error) {
	out, err := c.breaker.Execute(func() (interface{}, error) {
		return c.submit(ctx, zipBytes, filename)
	})
	if err != nil {
		return nil, err
	}
	return out.(*SubmitResult), nil
}

func (c *RESTClient) submit(ctx context.Context, zipBytes []byte, filename string) (*SubmitResult, error) {
	token, err := c.token(ctx)
	if err != nil {
		return nil, err
	}

	hash := sha256.Sum256(zipBytes)
	payload := submitRequest{Archivo: submitArchivo{
		NomArchivo: filename,
		ArcZip:     base64.StdEncoding.EncodeToString(zipBytes),
		HashZip:    hex.EncodeToString(hash[:]),
	}}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("sunat: serializar envío: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v1/contribuyente/gem/comprobantes/%s", c.baseURL, filename)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("sunat: crear request de envío: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sunat: enviar comprobante: %w", err)
	}
	defer resp.Body.Close()
	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("sunat: envío rechazado (HTTP %d): %s", resp.StatusCode, truncate(respBody, 300))
	}
	var sr submitResponse
	if err := json.Unmarshal(respBody, &sr); err != nil {
		return nil, fmt.Errorf("sunat: parsear respuesta de envío: %w", err)
	}
	if sr.NumTicket == "" {
		return nil, fmt.Errorf("sunat: respuesta de envío sin numTicket")
	}
	return &SubmitResult{Ticket: sr.NumTicket}, nil
}

// ── Consulta de tickets ───────────────────────────────────────────────────────

// Códigos de respuesta de la consulta de envíos SUNAT.
const (
	codAccepted  = "0"  // procesado correctamente, CDR disponible
	codInProcess = "98" // en proceso
	codWithError = "99" // procesado con errores
)

type ticketResponse struct {
	CodRespuesta   string       `json:"codRespuesta"`
	ArcCdr         string       `json:"arcCdr,omitempty"`
	IndCdrGenerado string       `json:"indCdrGenerado,omitempty"`
	Error          *ticketError `json:"error,omitempty"`
}

type ticketError struct {
	NumError string `json:"numError"`
	DesError string `json:"desError"`
}

// QueryTicket consulta el estado de un envío. codRespuesta "98" significa que
// SUNAT sigue procesando (no terminal); "0" aceptado; cualquier otro, rechazo.
func (c *RESTClient) QueryTicket(ctx context.Context, ticket string) (*TicketStatus, error) {
	out, err := c.breaker.Execute(func() (interface{}, error) {
		return c.queryTicket(ctx, ticket)
	})
	if err != nil {
		return nil, err
	}
	return out.(*TicketStatus), nil
}

func (c *RESTClient) queryTicket(ctx context.Context, ticket string) (*TicketStatus, error) {
	token, err := c.token(ctx)
	if err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s/v1/contribuyente/gem/comprobantes/envios/%s", c.baseURL, url.PathEscape(ticket))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("sunat: crear request de consulta: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sunat: consultar ticket: %w", err)
	}
	defer resp.Body.Close()
	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("sunat: consulta rechazada (HTTP %d): %s", resp.StatusCode, truncate(respBody, 300))
	}
	var tr ticketResponse
	if err := json.Unmarshal(respBody, &tr); err != nil {
		return nil, fmt.Errorf("sunat: parsear respuesta de consulta: %w", err)
	}

	switch tr.CodRespuesta {
	case codInProcess:
		return &TicketStatus{Terminal: false}, nil
	case codAccepted:
		return &TicketStatus{Terminal: true, Accepted: true, Response: string(respBody)}, nil
	default:
		detail := "codRespuesta=" + tr.CodRespuesta
		if tr.Error != nil && tr.Error.DesError != "" {
			detail = fmt.Sprintf("%s (%s): %s", detail, tr.Error.NumError, tr.Error.DesError)
		}
		return &TicketStatus{Terminal: true, Accepted: false, Response: string(respBody), Error: detail}, nil
	}
}

func truncate(b []byte, n int) string {
	s := string(b)
	if len(s) > n {
		return s[:n] + "..."
	}
	return s
}
