package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"cv-optimizer/internal/interview"
	"cv-optimizer/internal/sessions"
)

const defaultHTTPTimeout = 150 * time.Second

// API is a thin JSON client for the /api/v1 surface.
type API struct {
	BaseURL string
	HTTP    *http.Client
}

// NewAPI builds a client rooted at baseURL, for example
// "http://localhost:8080/api/v1".
func NewAPI(baseURL string, httpClient *http.Client) *API {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultHTTPTimeout}
	}
	return &API{BaseURL: strings.TrimRight(baseURL, "/"), HTTP: httpClient}
}

type UploadResult struct {
	SessionID string           `json:"session_id"`
	Status    sessions.Status  `json:"status"`
	Resume    *sessions.Resume `json:"resume"`
	Message   string           `json:"message"`
}

type AnalyzeResult struct {
	SessionID   string                `json:"session_id"`
	Status      sessions.Status       `json:"status"`
	GapAnalysis *sessions.GapAnalysis `json:"gap_analysis"`
	Questions   []sessions.Question   `json:"questions"`
}

type GenerateResult struct {
	SessionID       string               `json:"session_id"`
	Status          sessions.Status      `json:"status"`
	Comparison      *sessions.Comparison `json:"comparison"`
	OptimizedResume *sessions.Resume     `json:"optimized_resume"`
	PDFURL          string               `json:"pdf_url"`
	DOCXURL         string               `json:"docx_url"`
}

// CreateSession implements SessionCreator.
func (a *API) CreateSession(ctx context.Context) (string, error) {
	var out struct {
		SessionID string `json:"session_id"`
	}
	if err := a.doJSON(ctx, http.MethodPost, "/session/create", nil, &out); err != nil {
		return "", err
	}
	return out.SessionID, nil
}

func (a *API) Summary(ctx context.Context, sessionID string) (sessions.Summary, error) {
	var out sessions.Summary
	err := a.doJSON(ctx, http.MethodGet, "/session/"+url.PathEscape(sessionID), nil, &out)
	return out, err
}

func (a *API) DeleteSession(ctx context.Context, sessionID string) error {
	return a.doJSON(ctx, http.MethodDelete, "/session/"+url.PathEscape(sessionID), nil, nil)
}

// Upload sends a PDF as multipart form data.
func (a *API) Upload(ctx context.Context, sessionID, fileName string, file io.Reader) (UploadResult, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if err := w.WriteField("session_id", sessionID); err != nil {
		return UploadResult{}, err
	}
	part, err := w.CreateFormFile("file", fileName)
	if err != nil {
		return UploadResult{}, err
	}
	if _, err := io.Copy(part, file); err != nil {
		return UploadResult{}, fmt.Errorf("read %s: %w", fileName, err)
	}
	if err := w.Close(); err != nil {
		return UploadResult{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.BaseURL+"/cv/upload", &buf)
	if err != nil {
		return UploadResult{}, err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	var out UploadResult
	err = a.send(req, &out)
	return out, err
}

func (a *API) Analyze(ctx context.Context, sessionID, jobDescription string) (AnalyzeResult, error) {
	var out AnalyzeResult
	err := a.doJSON(ctx, http.MethodPost, "/analyze", map[string]string{
		"session_id":      sessionID,
		"job_description": jobDescription,
	}, &out)
	return out, err
}

func (a *API) Questions(ctx context.Context, sessionID string) (interview.QuestionList, error) {
	var out interview.QuestionList
	err := a.doJSON(ctx, http.MethodGet, "/interview/questions?session_id="+url.QueryEscape(sessionID), nil, &out)
	return out, err
}

func (a *API) Answer(ctx context.Context, sessionID, questionID, text string) (interview.Result, error) {
	var out interview.Result
	err := a.doJSON(ctx, http.MethodPost, "/interview/answer", map[string]any{
		"session_id":  sessionID,
		"question_id": questionID,
		"answer_text": text,
	}, &out)
	return out, err
}

func (a *API) Skip(ctx context.Context, sessionID, questionID string) (interview.Result, error) {
	var out interview.Result
	err := a.doJSON(ctx, http.MethodPost, "/interview/skip", map[string]string{
		"session_id":  sessionID,
		"question_id": questionID,
	}, &out)
	return out, err
}

func (a *API) Generate(ctx context.Context, sessionID string) (GenerateResult, error) {
	var out GenerateResult
	err := a.doJSON(ctx, http.MethodPost, "/cv/generate", map[string]string{"session_id": sessionID}, &out)
	return out, err
}

// Download streams a generated artifact ("pdf" or "docx") into w.
func (a *API) Download(ctx context.Context, sessionID, kind string, w io.Writer) (int64, error) {
	path := "/cv/download/" + url.PathEscape(kind) + "?session_id=" + url.QueryEscape(sessionID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.BaseURL+path, nil)
	if err != nil {
		return 0, err
	}
	resp, err := a.HTTP.Do(req)
	if err != nil {
		return 0, fmt.Errorf("download %s: %w", kind, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return 0, decodeError(resp)
	}
	return io.Copy(w, resp.Body)
}

func (a *API) doJSON(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, a.BaseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return a.send(req, out)
}

func (a *API) send(req *http.Request, out any) error {
	req.Header.Set("Accept", "application/json")
	resp, err := a.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return decodeError(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", req.URL.Path, err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode}
	var body struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if json.Unmarshal(raw, &body) == nil {
		apiErr.Code = body.Error.Code
		apiErr.Message = body.Error.Message
	}
	if apiErr.Code == "" {
		apiErr.Code = http.StatusText(resp.StatusCode)
	}
	return apiErr
}
