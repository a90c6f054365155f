package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/iwvelando/finance-calculators/internal/config"
	"github.com/iwvelando/finance-calculators/internal/evaluate"
	"github.com/iwvelando/finance-calculators/internal/insight"
	"github.com/iwvelando/finance-calculators/pkg/calc"
	"github.com/iwvelando/finance-calculators/pkg/constants"
	"github.com/iwvelando/finance-calculators/pkg/output"
	"github.com/iwvelando/finance-calculators/pkg/planner"
	"github.com/iwvelando/finance-calculators/pkg/validation"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

type handler struct {
	logger        *zap.Logger
	maxUploadSize int64
	version       string
	generator     calc.InsightGenerator
}

type worksheetOptions struct {
	Insight bool
}

// NewHandler constructs the HTTP handler that serves the calculator API. A
// nil generator answers insight requests with the missing-credentials text.
func NewHandler(logger *zap.Logger, maxUploadSize int64, version string, generator calc.InsightGenerator) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}

	if maxUploadSize <= 0 {
		maxUploadSize = constants.DefaultMaxUploadSizeBytes
	}

	trimmedVersion := strings.TrimSpace(version)
	if trimmedVersion == "" {
		trimmedVersion = "dev"
	}

	if generator == nil {
		generator = insight.New(context.Background(), config.InsightConfig{}, logger)
	}

	h := &handler{logger: logger, maxUploadSize: maxUploadSize, version: trimmedVersion, generator: generator}

	mux := http.NewServeMux()

	// Calculator catalogue
	mux.HandleFunc("/api/calculators", h.handleCalculators)

	// Single calculator session
	mux.HandleFunc("/api/calculate", h.handleCalculate)
	mux.HandleFunc("/api/insight", h.handleInsight)

	// Worksheet API endpoint (file upload)
	mux.HandleFunc("/api/worksheet", h.handleWorksheet)

	// Worksheet API endpoint for editor-driven updates
	mux.HandleFunc("/api/editor/worksheet", h.handleWorksheetEditor)

	// Worksheet serialization endpoint for editor downloads
	mux.HandleFunc("/api/editor/export", h.handleConfigExport)

	// Version endpoint for UI metadata
	mux.HandleFunc("/api/version", h.handleVersion)

	return mux
}

type calculatorInfo struct {
	Name   string   `json:"name"`
	Modes  []string `json:"modes,omitempty"`
	Mode   string   `json:"mode,omitempty"`
	Fields []string `json:"fields"`
}

type calculateRequest struct {
	Calculator    string            `json:"calculator"`
	Mode          string            `json:"mode,omitempty"`
	Fields        map[string]string `json:"fields,omitempty"`
	Months        []config.Month    `json:"months,omitempty"`
	PropagateFrom int               `json:"propagateFrom,omitempty"`
}

type calculateResponse struct {
	Calculator string            `json:"calculator"`
	Mode       string            `json:"mode,omitempty"`
	Fields     map[string]string `json:"fields"`
	Months     []planner.Month   `json:"months,omitempty"`
	Computable bool              `json:"computable"`
	Result     calc.Result       `json:"result"`
	Duration   string            `json:"duration"`
}

type insightResponse struct {
	Context string            `json:"context"`
	Data    map[string]string `json:"data"`
	Insight string            `json:"insight"`
}

type worksheetResponse struct {
	Sheets     []evaluate.Evaluation  `json:"sheets"`
	CSV        string                 `json:"csv"`
	Warnings   []string               `json:"warnings,omitempty"`
	Duration   string                 `json:"duration"`
	Config     map[string]interface{} `json:"config,omitempty"`
	ConfigYAML string                 `json:"configYaml,omitempty"`
}

func (h *handler) handleCalculators(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	infos := make([]calculatorInfo, 0, len(validation.Calculators))
	for _, name := range validation.Calculators {
		c, err := evaluate.NewCalculator(name, h.logger)
		if err != nil {
			h.respondErrorWithOp(w, http.StatusInternalServerError, err.Error(), "server.handleCalculators")
			return
		}
		info := calculatorInfo{Name: name, Fields: c.Keys()}
		if switcher, ok := c.(calc.ModeSwitcher); ok {
			info.Modes = switcher.Modes()
			info.Mode = switcher.Mode()
		}
		infos = append(infos, info)
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{"calculators": infos})
}

func (h *handler) handleCalculate(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleCalculate"
	if r.Method != http.MethodPost {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	start := time.Now()
	c, ok := h.buildCalculator(w, r, op)
	if !ok {
		return
	}

	response := calculateResponse{
		Calculator: c.Name(),
		Fields:     c.Fields(),
		Computable: c.Result().Computable(),
		Result:     c.Result(),
	}
	if switcher, ok := c.(calc.ModeSwitcher); ok {
		response.Mode = switcher.Mode()
	}
	if p, ok := c.(*planner.Calculator); ok {
		response.Months = p.Months()
	}
	elapsed := time.Since(start)
	response.Duration = elapsed.String()

	h.logger.Debug("calculation computed",
		zap.String("op", op),
		zap.String("calculator", c.Name()),
		zap.Bool("computable", response.Computable),
		zap.Duration("duration", elapsed),
	)
	h.writeJSON(w, http.StatusOK, response)
}

func (h *handler) handleInsight(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleInsight"
	if r.Method != http.MethodPost {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	c, ok := h.buildCalculator(w, r, op)
	if !ok {
		return
	}

	req, ok := c.InsightRequest()
	if !ok {
		h.respondErrorWithOp(w, http.StatusUnprocessableEntity, "inputs are not computable", op)
		return
	}

	advisory := c.Advisory()
	<-advisory.Request(r.Context(), h.generator, req)

	h.writeJSON(w, http.StatusOK, insightResponse{
		Context: req.Context,
		Data:    req.Data,
		Insight: advisory.Text(),
	})
}

// buildCalculator decodes a calculate request and replays it into a fresh
// calculator. On failure the error response has already been written.
func (h *handler) buildCalculator(w http.ResponseWriter, r *http.Request, op string) (calc.Calculator, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)

	var req calculateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			h.respondErrorWithOp(w, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("request exceeds limit of %d bytes", h.maxUploadSize), op)
			return nil, false
		}
		h.respondErrorWithOp(w, http.StatusBadRequest, fmt.Sprintf("failed to decode request: %v", err), op)
		return nil, false
	}

	c, err := evaluate.NewCalculator(req.Calculator, h.logger)
	if err != nil {
		h.respondErrorWithOp(w, http.StatusBadRequest, err.Error(), op)
		return nil, false
	}

	sheet := config.Sheet{
		Calculator:    req.Calculator,
		Mode:          req.Mode,
		Fields:        req.Fields,
		Months:        req.Months,
		PropagateFrom: req.PropagateFrom,
	}
	if err := evaluate.ApplySheet(c, sheet); err != nil {
		h.respondErrorWithOp(w, http.StatusBadRequest, err.Error(), op)
		return nil, false
	}
	return c, true
}

func (h *handler) handleWorksheet(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	start := time.Now()
	if h.maxUploadSize > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)
	}
	if err := r.ParseMultipartForm(h.maxUploadSize); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			h.respondError(w, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("upload exceeds limit of %d bytes", h.maxUploadSize))
			return
		}
		h.respondError(w, http.StatusBadRequest, fmt.Sprintf("failed to parse upload: %v", err))
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "missing worksheet file")
		return
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil {
			h.logger.Warn("failed to close uploaded file",
				zap.String("op", "server.handleWorksheet"),
				zap.Error(closeErr),
			)
		}
	}()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, file); err != nil {
		h.respondError(w, http.StatusInternalServerError, fmt.Sprintf("failed to read worksheet: %v", err))
		return
	}

	configBytes := buf.Bytes()
	configMap, err := decodeYAMLToMap(configBytes)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, fmt.Sprintf("error reading worksheet data, %v", err))
		return
	}

	options := worksheetOptions{Insight: coerceBool(r.FormValue("insight"))}
	h.runWorksheet(r.Context(), w, configBytes, configMap, start, "server.handleWorksheet", options)
}

func (h *handler) handleVersion(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{
		"version": h.version,
	})
}

func (h *handler) handleWorksheetEditor(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleWorksheetEditor"
	if r.Method != http.MethodPost {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	start := time.Now()
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)

	var payload map[string]interface{}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		h.respondErrorWithOp(w, http.StatusBadRequest, fmt.Sprintf("failed to decode worksheet: %v", err), op)
		return
	}
	if payload == nil {
		payload = make(map[string]interface{})
	}

	configPayload := payload
	if rawConfig, ok := payload["config"]; ok {
		cfgMap, ok := rawConfig.(map[string]interface{})
		if !ok {
			h.respondErrorWithOp(w, http.StatusBadRequest, "invalid config payload: expected object", op)
			return
		}
		configPayload = cfgMap
	}

	options := worksheetOptions{}
	if rawOptions, ok := payload["options"]; ok {
		optsMap, ok := rawOptions.(map[string]interface{})
		if !ok {
			h.respondErrorWithOp(w, http.StatusBadRequest, "invalid options payload: expected object", op)
			return
		}
		if insightVal, ok := optsMap["insight"]; ok {
			options.Insight = coerceBool(insightVal)
		}
	}

	configBytes, err := yaml.Marshal(configPayload)
	if err != nil {
		h.respondErrorWithOp(w, http.StatusBadRequest, fmt.Sprintf("failed to encode worksheet: %v", err), op)
		return
	}

	configMap, err := decodeYAMLToMap(configBytes)
	if err != nil {
		h.respondErrorWithOp(w, http.StatusBadRequest, fmt.Sprintf("failed to parse worksheet: %v", err), op)
		return
	}

	h.runWorksheet(r.Context(), w, configBytes, configMap, start, op, options)
}

func (h *handler) handleConfigExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	var payload map[string]interface{}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		h.respondErrorWithOp(w, http.StatusBadRequest, fmt.Sprintf("failed to decode worksheet: %v", err), "server.handleConfigExport")
		return
	}
	if payload == nil {
		payload = make(map[string]interface{})
	}

	yamlBytes, err := marshalOrderedConfigYAML(payload)
	if err != nil {
		h.respondErrorWithOp(w, http.StatusBadRequest, fmt.Sprintf("failed to encode worksheet: %v", err), "server.handleConfigExport")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{
		"configYaml": string(yamlBytes),
	})
}

// marshalOrderedConfigYAML writes the ambient sections first and the sheets
// last so exported worksheets read top-down.
func marshalOrderedConfigYAML(payload map[string]interface{}) ([]byte, error) {
	items := make([]orderedItem, 0, len(payload))
	seen := make(map[string]struct{})

	for _, key := range []string{"logging", "output", "insight"} {
		if value, ok := payload[key]; ok {
			items = append(items, orderedItem{key: key, value: value})
			seen[key] = struct{}{}
		}
	}

	remainingKeys := make([]string, 0, len(payload))
	for key := range payload {
		if _, already := seen[key]; already {
			continue
		}
		remainingKeys = append(remainingKeys, key)
	}
	sort.Strings(remainingKeys)
	for _, key := range remainingKeys {
		items = append(items, orderedItem{key: key, value: payload[key]})
	}

	ordered := orderedConfig{items: items}
	return yaml.Marshal(ordered)
}

type orderedConfig struct {
	items []orderedItem
}

type orderedItem struct {
	key   string
	value interface{}
}

func (o orderedConfig) MarshalYAML() (interface{}, error) {
	mapNode := &yaml.Node{
		Kind: yaml.MappingNode,
		Tag:  "!!map",
	}

	for _, item := range o.items {
		keyNode := &yaml.Node{
			Kind:  yaml.ScalarNode,
			Tag:   "!!str",
			Value: item.key,
		}
		valueNode := &yaml.Node{}
		if err := valueNode.Encode(item.value); err != nil {
			return nil, err
		}
		mapNode.Content = append(mapNode.Content, keyNode, valueNode)
	}

	return mapNode, nil
}

func (h *handler) runWorksheet(ctx context.Context, w http.ResponseWriter, configBytes []byte, configMap map[string]interface{}, start time.Time, op string, opts worksheetOptions) {
	cfg, err := config.LoadConfigurationFromReader(bytes.NewReader(configBytes), "yaml")
	if err != nil {
		h.respondErrorWithOp(w, http.StatusBadRequest, err.Error(), op)
		return
	}

	warnings := cfg.ValidateConfiguration()

	// Uploaded worksheets never carry credentials; the server's generator is used.
	cfg.Insight.Enabled = opts.Insight
	cfg.Insight.APIKey = ""

	results, err := evaluate.Evaluate(ctx, h.logger, *cfg, h.generator)
	if err != nil {
		h.respondErrorWithOp(w, http.StatusBadRequest, fmt.Sprintf("failed to evaluate worksheet: %v", err), op)
		return
	}

	csvData, err := output.CsvString(results)
	if err != nil {
		h.respondErrorWithOp(w, http.StatusInternalServerError, fmt.Sprintf("failed to render CSV: %v", err), op)
		return
	}

	elapsed := time.Since(start)

	if configMap == nil {
		configMap = make(map[string]interface{})
	}

	response := worksheetResponse{
		Sheets:     results,
		CSV:        csvData,
		Warnings:   warnings,
		Duration:   elapsed.String(),
		Config:     configMap,
		ConfigYAML: string(configBytes),
	}

	h.logger.Info("worksheet computed",
		zap.String("op", op),
		zap.Int("sheets", len(response.Sheets)),
		zap.Int("warnings", len(response.Warnings)),
		zap.Duration("duration", elapsed),
	)

	h.writeJSON(w, http.StatusOK, response)
}

func decodeYAMLToMap(data []byte) (map[string]interface{}, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return make(map[string]interface{}), nil
	}

	var result map[string]interface{}
	if err := yaml.Unmarshal(trimmed, &result); err != nil {
		return nil, err
	}
	if result == nil {
		result = make(map[string]interface{})
	}
	return result, nil
}

func (h *handler) respondError(w http.ResponseWriter, status int, msg string) {
	h.respondErrorWithOp(w, status, msg, "server.handleWorksheet")
}

func (h *handler) respondErrorWithOp(w http.ResponseWriter, status int, msg string, op string) {
	h.logger.Error("request failed",
		zap.String("op", op),
		zap.Int("status", status),
		zap.String("error", msg),
	)

	h.writeJSON(w, status, map[string]string{"error": msg})
}

func (h *handler) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("failed to write JSON response", zap.Error(err))
	}
}

func coerceBool(value interface{}) bool {
	switch v := value.(type) {
	case bool:
		return v
	case string:
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			return false
		}
		if parsed, err := strconv.ParseBool(trimmed); err == nil {
			return parsed
		}
	case float64:
		return v != 0
	case int:
		return v != 0
	case int64:
		return v != 0
	case json.Number:
		if parsed, err := strconv.ParseFloat(v.String(), 64); err == nil {
			return parsed != 0
		}
	}
	return false
}
