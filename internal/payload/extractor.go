package payload

import (
	"encoding/json"
	"reflect"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-viper/mapstructure/v2"
)

const (
	jsonObjectOpeningConstant = "{"
	jsonObjectClosingConstant = "}"
	recordTagNameConstant     = "mapstructure"
)

// Strategy names the technique that recovered a record.
type Strategy string

// Supported extraction strategies, in the order they are attempted.
const (
	StrategyStrictJSON   Strategy = "strict_json"
	StrategyEmbeddedJSON Strategy = "embedded_json"
	StrategyLooseFields  Strategy = "loose_fields"
)

// Extraction is a recovered record together with the strategy that produced it.
type Extraction struct {
	Record   UploadRecord
	Strategy Strategy
}

type extractionStrategy struct {
	name    Strategy
	extract func(issueBody string) (UploadRecord, bool)
}

var extractionStrategies = []extractionStrategy{
	{name: StrategyStrictJSON, extract: extractStrictJSON},
	{name: StrategyEmbeddedJSON, extract: extractEmbeddedJSON},
	{name: StrategyLooseFields, extract: extractLooseFields},
}

// Content values in the loose form are limited to the base64 alphabet and whitespace,
// so they may continue across lines.
var (
	quotedPathPattern    = regexp.MustCompile(`(?i)"?path"?\s*:\s*"?([^"\n]+)"?`)
	loosePathPattern     = regexp.MustCompile(`(?i)path\s*[:=]\s*(.+)`)
	quotedContentPattern = regexp.MustCompile(`(?i)"?content"?\s*:\s*"?([A-Za-z0-9+/=\s]+)"?`)
	looseContentPattern  = regexp.MustCompile(`(?i)content\s*[:=]\s*([A-Za-z0-9+/=\s]+)`)
)

// Extract recovers an upload record from an issue body. The boolean is false when no
// strategy produced a record with both a path and content.
func Extract(issueBody string) (Extraction, bool) {
	for _, strategy := range extractionStrategies {
		record, found := strategy.extract(issueBody)
		if found && record.Valid() {
			return Extraction{Record: record, Strategy: strategy.name}, true
		}
	}
	return Extraction{}, false
}

func extractStrictJSON(issueBody string) (UploadRecord, bool) {
	return decodeJSONObject(issueBody)
}

func extractEmbeddedJSON(issueBody string) (UploadRecord, bool) {
	openingIndex := strings.Index(issueBody, jsonObjectOpeningConstant)
	closingIndex := strings.LastIndex(issueBody, jsonObjectClosingConstant)
	if openingIndex < 0 || closingIndex <= openingIndex {
		return UploadRecord{}, false
	}
	return decodeJSONObject(issueBody[openingIndex : closingIndex+1])
}

func extractLooseFields(issueBody string) (UploadRecord, bool) {
	pathValue, pathFound := firstSubmatch(issueBody, quotedPathPattern, loosePathPattern)
	if !pathFound {
		return UploadRecord{}, false
	}
	contentValue, contentFound := firstSubmatch(issueBody, quotedContentPattern, looseContentPattern)
	if !contentFound {
		return UploadRecord{}, false
	}
	return UploadRecord{Path: strings.TrimSpace(pathValue), Content: strings.TrimSpace(contentValue)}, true
}

func firstSubmatch(text string, patterns ...*regexp.Regexp) (string, bool) {
	for _, pattern := range patterns {
		submatches := pattern.FindStringSubmatch(text)
		if len(submatches) > 1 {
			return submatches[1], true
		}
	}
	return "", false
}

// decodeJSONObject accepts only JSON objects. Scalar path and content values are
// converted to strings (booleans as "true" and "false"); structured values reject
// the candidate.
func decodeJSONObject(candidate string) (UploadRecord, bool) {
	var decodedValue any
	if unmarshalError := json.Unmarshal([]byte(candidate), &decodedValue); unmarshalError != nil {
		return UploadRecord{}, false
	}

	fields, isObject := decodedValue.(map[string]any)
	if !isObject {
		return UploadRecord{}, false
	}

	var record UploadRecord
	decoder, decoderError := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		DecodeHook:       mapstructure.DecodeHookFuncType(booleanToWord),
		TagName:          recordTagNameConstant,
		MatchName:        exactFieldName,
		Result:           &record,
	})
	if decoderError != nil {
		return UploadRecord{}, false
	}
	if decodeError := decoder.Decode(fields); decodeError != nil {
		return UploadRecord{}, false
	}

	return record, true
}

// booleanToWord spells booleans out; weak decoding alone would yield "1" and "0".
func booleanToWord(sourceType reflect.Type, targetType reflect.Type, value any) (any, error) {
	if sourceType.Kind() != reflect.Bool || targetType.Kind() != reflect.String {
		return value, nil
	}
	return strconv.FormatBool(value.(bool)), nil
}

func exactFieldName(mapKey string, fieldName string) bool {
	return mapKey == fieldName
}
