package gemini

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"syscall"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/yanqian/rihla/internal/domain/generation"
	apperrors "github.com/yanqian/rihla/pkg/errors"
	"github.com/yanqian/rihla/pkg/metrics"
)

const (
	defaultModel     = "gemini-2.0-flash"
	maxRemoteImage   = 10 << 20
	imageFetchBudget = 15 * time.Second
)

// Options configures the Gemini provider.
type Options struct {
	APIKey string
	// Model is used whenever the call spec names a non-Gemini model.
	Model    string
	Endpoint string
}

// Provider implements generation.Provider on top of the Gemini SDK.
type Provider struct {
	client *genai.Client
	model  string
	images *imageFetcher
}

// NewProvider creates the SDK client.
func NewProvider(ctx context.Context, opts Options) (*Provider, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, errors.New("gemini: missing api key")
	}
	clientOpts := []option.ClientOption{option.WithAPIKey(opts.APIKey)}
	if opts.Endpoint != "" {
		clientOpts = append(clientOpts, option.WithEndpoint(opts.Endpoint))
	}
	client, err := genai.NewClient(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = defaultModel
	}
	return &Provider{
		client: client,
		model:  model,
		images: newImageFetcher(publicIP),
	}, nil
}

// Close releases the SDK client.
func (p *Provider) Close() error {
	return p.client.Close()
}

// Complete implements generation.Provider.
func (p *Provider) Complete(ctx context.Context, call generation.ProviderCall) (generation.RawModelResponse, error) {
	modelID := p.modelFor(call.Spec.ModelID)
	model := p.client.GenerativeModel(modelID)
	model.SetTemperature(call.Spec.Temperature)
	if call.Spec.MaxOutputTokens > 0 {
		model.SetMaxOutputTokens(int32(call.Spec.MaxOutputTokens))
	}
	if call.Prompt.System != "" {
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(call.Prompt.System)}}
	}

	parts := []genai.Part{}
	if call.Prompt.Image != nil {
		blob, err := p.imagePart(ctx, call.Prompt.Image)
		if err != nil {
			return generation.RawModelResponse{}, err
		}
		parts = append(parts, blob)
	}
	parts = append(parts, genai.Text(call.Prompt.User))

	var resp *genai.GenerateContentResponse
	var err error
	if len(call.Prompt.History) > 0 {
		session := model.StartChat()
		session.History = chatHistory(call.Prompt.History)
		resp, err = session.SendMessage(ctx, parts...)
	} else {
		resp, err = model.GenerateContent(ctx, parts...)
	}
	if err != nil {
		return generation.RawModelResponse{}, toStatusError(err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return generation.RawModelResponse{}, errors.New("gemini: API returned empty candidates")
	}

	candidate := resp.Candidates[0]
	var text strings.Builder
	for _, part := range candidate.Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			text.WriteString(string(txt))
		}
	}
	out := generation.RawModelResponse{
		Text:      text.String(),
		Truncated: candidate.FinishReason == genai.FinishReasonMaxTokens,
		Model:     modelID,
	}
	if usage := resp.UsageMetadata; usage != nil {
		out.Usage = metrics.TokenUsage{
			PromptTokens:     int(usage.PromptTokenCount),
			CompletionTokens: int(usage.CandidatesTokenCount),
			TotalTokens:      int(usage.TotalTokenCount),
		}
	}
	return out, nil
}

// chatHistory maps earlier turns onto Gemini roles, where the assistant is "model".
func chatHistory(turns []generation.ChatMessage) []*genai.Content {
	history := make([]*genai.Content, 0, len(turns))
	for _, turn := range turns {
		role := "user"
		if turn.Role == generation.ChatRoleAssistant {
			role = "model"
		}
		history = append(history, &genai.Content{Role: role, Parts: []genai.Part{genai.Text(turn.Content)}})
	}
	return history
}

func (p *Provider) modelFor(requested string) string {
	if strings.HasPrefix(requested, "gemini") {
		return requested
	}
	return p.model
}

// imagePart turns the prompt image into inline data. Gemini cannot read
// arbitrary URLs, so remote images are downloaded first.
func (p *Provider) imagePart(ctx context.Context, ref *generation.ImageRef) (genai.Part, error) {
	if len(ref.Data) > 0 {
		return genai.ImageData(imageFormat(ref.MimeType), ref.Data), nil
	}
	data, mimeType, err := p.images.fetch(ctx, ref.URL)
	if err != nil {
		return nil, err
	}
	return genai.ImageData(imageFormat(mimeType), data), nil
}

var errBlockedHost = errors.New("image host is not publicly routable")

// imageFetcher downloads traveller supplied image URLs. Every dialled
// address is checked, so redirects and DNS answers cannot reach internal hosts.
type imageFetcher struct {
	client  *http.Client
	allowed func(net.IP) bool
}

func newImageFetcher(allowed func(net.IP) bool) *imageFetcher {
	f := &imageFetcher{allowed: allowed}
	dialer := &net.Dialer{Timeout: 5 * time.Second, Control: f.checkDial}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.Proxy = nil
	transport.DialContext = dialer.DialContext
	f.client = &http.Client{Timeout: imageFetchBudget, Transport: transport}
	return f
}

func (f *imageFetcher) fetch(ctx context.Context, rawURL string) ([]byte, string, error) {
	if err := f.checkHost(ctx, rawURL); err != nil {
		return nil, "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, "", apperrors.Wrap(generation.CodeInvalidInput, "image url is not valid", err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		if errors.Is(err, errBlockedHost) {
			return nil, "", apperrors.Wrap(generation.CodeInvalidInput, "image url must point to a public host", err)
		}
		return nil, "", fmt.Errorf("gemini: fetch image: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil, "", &generation.StatusError{StatusCode: http.StatusBadGateway, Body: fmt.Sprintf("image url answered %d", resp.StatusCode)}
	}
	if resp.ContentLength > maxRemoteImage {
		return nil, "", tooLarge()
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxRemoteImage+1))
	if err != nil {
		return nil, "", fmt.Errorf("gemini: read image: %w", err)
	}
	if len(data) > maxRemoteImage {
		return nil, "", tooLarge()
	}
	mimeType := resp.Header.Get("Content-Type")
	if !strings.HasPrefix(mimeType, "image/") {
		mimeType = http.DetectContentType(data)
	}
	return data, mimeType, nil
}

func (f *imageFetcher) checkHost(ctx context.Context, rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return apperrors.Wrap(generation.CodeInvalidInput, "image url must be an absolute http(s) url", err)
	}
	addrs, err := net.DefaultResolver.LookupIPAddr(ctx, u.Hostname())
	if err != nil {
		return apperrors.Wrap(generation.CodeInvalidInput, "image url host could not be resolved", err)
	}
	for _, addr := range addrs {
		if !f.allowed(addr.IP) {
			return apperrors.Wrap(generation.CodeInvalidInput, "image url must point to a public host", errBlockedHost)
		}
	}
	return nil
}

func (f *imageFetcher) checkDial(_, address string, _ syscall.RawConn) error {
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		return err
	}
	if ip := net.ParseIP(host); ip == nil || !f.allowed(ip) {
		return errBlockedHost
	}
	return nil
}

// publicIP rejects loopback, private, link-local and unspecified addresses.
func publicIP(ip net.IP) bool {
	return !(ip.IsLoopback() || ip.IsPrivate() || ip.IsLinkLocalUnicast() ||
		ip.IsLinkLocalMulticast() || ip.IsInterfaceLocalMulticast() || ip.IsUnspecified() || ip.IsMulticast())
}

func tooLarge() error {
	return apperrors.Wrap(generation.CodeInvalidInput, fmt.Sprintf("image exceeds the %dMB limit", maxRemoteImage>>20), nil)
}

// imageFormat maps a MIME type to the short format the SDK expects.
func imageFormat(mimeType string) string {
	format := strings.TrimPrefix(strings.ToLower(mimeType), "image/")
	if i := strings.IndexByte(format, ';'); i >= 0 {
		format = format[:i]
	}
	if format == "" || strings.Contains(format, "/") {
		return "jpeg"
	}
	return strings.TrimSpace(format)
}

func toStatusError(err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return &generation.StatusError{StatusCode: apiErr.Code, Body: apiErr.Message}
	}
	return fmt.Errorf("gemini: generate content: %w", err)
}

var _ generation.Provider = (*Provider)(nil)
