// Copyright 2026 Teradata
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package shuttle

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode"

	"go.uber.org/zap"

	"github.com/teradata-labs/chatdb/pkg/fabric"
)

// ErrToolNotFound is returned for calls to unregistered tools.
var ErrToolNotFound = errors.New("tool not found")

// ToolError wraps a failure returned by a tool. The underlying error stays
// reachable through errors.Is and errors.As.
type ToolError struct {
	Tool string
	Err  error
}

func (e *ToolError) Error() string {
	return fmt.Sprintf("%s: %v", e.Tool, e.Err)
}

func (e *ToolError) Unwrap() error { return e.Err }

// Executor executes tools with timing, argument validation and logging.
type Executor struct {
	registry *Registry
	logger   *zap.Logger
}

// NewExecutor creates a new tool executor. A nil logger disables logging.
func NewExecutor(registry *Registry, logger *zap.Logger) *Executor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Executor{registry: registry, logger: logger}
}

// Execute executes a tool by name with the given parameters. On failure the
// returned Result describes the error for the LLM and the error itself is a
// *ToolError.
func (e *Executor) Execute(ctx context.Context, toolName string, params map[string]interface{}) (*Result, error) {
	tool, ok := e.registry.Get(toolName)
	if !ok {
		err := &ToolError{Tool: toolName, Err: fmt.Errorf("%w: %s", ErrToolNotFound, toolName)}
		return failedResult(err, 0), err
	}

	params = normalizeParametersToSchema(tool, params)
	if err := ValidateParams(tool.InputSchema(), params); err != nil {
		terr := &ToolError{Tool: toolName, Err: err}
		return failedResult(terr, 0), terr
	}

	start := time.Now()
	result, err := tool.Execute(ctx, params)
	duration := time.Since(start)

	if err != nil {
		e.logger.Debug("tool failed",
			zap.String("tool", toolName),
			zap.Duration("duration", duration),
			zap.Error(err))
		terr := &ToolError{Tool: toolName, Err: err}
		return failedResult(terr, duration.Milliseconds()), terr
	}

	if result == nil {
		result = &Result{Success: true}
	}
	// executor timing is authoritative
	result.ExecutionTimeMs = duration.Milliseconds()

	e.logger.Debug("tool executed",
		zap.String("tool", toolName),
		zap.Duration("duration", duration))
	return result, nil
}

func failedResult(err error, durationMs int64) *Result {
	return &Result{
		Success:         false,
		Error:           &Error{Code: fabric.KindOf(err).String(), Message: err.Error()},
		ExecutionTimeMs: durationMs,
	}
}

// normalizeParametersToSchema maps argument names onto the schema's names
// so camelCase and snake_case spellings both bind. A bare string passed for
// an array property becomes a one-element array.
func normalizeParametersToSchema(tool Tool, params map[string]interface{}) map[string]interface{} {
	if len(params) == 0 {
		return params
	}

	schema := tool.InputSchema()
	if schema == nil || schema.Properties == nil {
		return params
	}

	schemaKeys := make(map[string]string)
	for key := range schema.Properties {
		schemaKeys[toLowerUnderscore(key)] = key
	}

	normalized := make(map[string]interface{}, len(params))
	for key, value := range params {
		if schemaKey, exists := schemaKeys[toLowerUnderscore(key)]; exists {
			if str, isString := value.(string); isString && isArray(schema.Properties[schemaKey]) {
				value = []interface{}{str}
			}
			normalized[schemaKey] = value
		} else {
			normalized[key] = value
		}
	}

	return normalized
}

// toLowerUnderscore converts any naming convention to lowercase with underscores.
func toLowerUnderscore(s string) string {
	if s == "" {
		return ""
	}

	var result []rune
	for i, r := range s {
		if i > 0 && unicode.IsUpper(r) {
			result = append(result, '_')
		}
		result = append(result, unicode.ToLower(r))
	}

	return string(result)
}

func isArray(s *JSONSchema) bool {
	return s != nil && s.Type == "array"
}
