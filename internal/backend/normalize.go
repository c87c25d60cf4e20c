package backend

import (
	"encoding/json"
	"strings"
	"time"
)

// wireRecord accepts every spelling the backend has used for a query-log
// row across API versions. Normalization resolves each concept through
// its alias chain once, here, instead of threading optional fields
// through the aggregation logic.
type wireRecord struct {
	QueryID string `json:"query_id"`
	ID      string `json:"id"`

	RequestTimestamp string `json:"request_timestamp"`
	Timestamp        string `json:"timestamp"`

	Person     string `json:"person"`
	PersonName string `json:"person_name"`
	User       string `json:"user"`

	Team     string `json:"team"`
	IAMGroup string `json:"iam_group"`

	ModelID string `json:"model_id"`
	Model   string `json:"model"`

	KnowledgeBaseID string `json:"knowledge_base_id"`
	KnowledgeBase   string `json:"knowledgeBase"`

	UserQuery string `json:"user_query"`
	Query     string `json:"query"`

	Status string `json:"status"`

	TokensUsed  *int `json:"tokens_used"`
	TokensTotal *int `json:"tokens_total"`
	Tokens      *int `json:"tokens"`

	ProcessingTimeMs *float64 `json:"processing_time_ms"`
	ResponseTimeMs   *float64 `json:"response_time_ms"`

	ErrorMessage *string `json:"error_message"`

	LLMTrust        *float64 `json:"llm_trust"`
	ConfidenceScore *float64 `json:"confidence_score"`
	TrustCategory   string   `json:"llm_trust_category"`
	StrategyType    string   `json:"strategy_type"`

	RetrievedDocsCount      *int `json:"retrieved_docs_count"`
	RetrievedDocumentsCount *int `json:"retrieved_documents_count"`
}

type wireDetail struct {
	wireRecord

	LLMResponse         *string         `json:"llm_response"`
	UserName            string          `json:"user_name"`
	ConversationID      string          `json:"conversation_id"`
	ConversationBedrock string          `json:"conversation_id_bedrock"`
	TokensInput         *int            `json:"tokens_input"`
	TokensOutput        *int            `json:"tokens_output"`
	VectorDBTimeMs      *int            `json:"vector_db_time_ms"`
	LLMProcessingTimeMs *int            `json:"llm_processing_time_ms"`
	LambdaRequestID     string          `json:"lambda_request_id"`
	APIGatewayRequestID string          `json:"api_gateway_request_id"`
	SourceIP            string          `json:"source_ip"`
	ToolsUsed           json.RawMessage `json:"tools_used"`
	ToolResults         json.RawMessage `json:"tool_results"`
}

var offsetLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
}

// zonelessLayouts cover the backend's naive timestamps. They carry no
// offset and mean wall-clock time in the viewer's zone, so they must be
// parsed in the given location, not UTC.
var zonelessLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func parseTimestamp(loc *time.Location, values ...string) time.Time {
	for _, v := range values {
		if v == "" {
			continue
		}
		for _, layout := range offsetLayouts {
			if t, err := time.Parse(layout, v); err == nil {
				return t
			}
		}
		for _, layout := range zonelessLayouts {
			if t, err := time.ParseInLocation(layout, v, loc); err == nil {
				return t
			}
		}
	}
	return time.Time{}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func firstInt(values ...*int) int {
	for _, v := range values {
		if v != nil {
			return *v
		}
	}
	return 0
}

func normalizeStatus(raw string) Status {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "", "COMPLETED", "SUCCESS", "OK":
		return StatusCompleted
	case "ERROR", "FAILED":
		return StatusError
	default:
		return Status(strings.ToUpper(strings.TrimSpace(raw)))
	}
}

func (w wireRecord) normalize(loc *time.Location) QueryLogRecord {
	rec := QueryLogRecord{
		ID:               firstNonEmpty(w.QueryID, w.ID),
		RequestTimestamp: parseTimestamp(loc, w.RequestTimestamp, w.Timestamp),
		Person:           firstNonEmpty(w.Person, w.PersonName, w.User),
		Team:             firstNonEmpty(w.Team, w.IAMGroup),
		ModelID:          firstNonEmpty(w.ModelID, w.Model),
		KnowledgeBaseID:  firstNonEmpty(w.KnowledgeBaseID, w.KnowledgeBase),
		QueryText:        firstNonEmpty(w.UserQuery, w.Query),
		Status:           normalizeStatus(w.Status),
		TokensUsed:       firstInt(w.TokensUsed, w.TokensTotal, w.Tokens),
		TrustCategory:    w.TrustCategory,
		StrategyType:     w.StrategyType,
	}

	if w.ProcessingTimeMs != nil {
		ms := int(*w.ProcessingTimeMs)
		rec.ProcessingTimeMs = &ms
	} else if w.ResponseTimeMs != nil {
		ms := int(*w.ResponseTimeMs)
		rec.ProcessingTimeMs = &ms
	}

	if w.ErrorMessage != nil {
		rec.ErrorMessage = *w.ErrorMessage
	}

	switch {
	case w.LLMTrust != nil:
		rec.TrustScore = *w.LLMTrust
	case w.ConfidenceScore != nil:
		rec.TrustScore = *w.ConfidenceScore
	}

	rec.RetrievedDocsCount = firstInt(w.RetrievedDocsCount, w.RetrievedDocumentsCount)

	return rec
}

func (w wireDetail) normalize(loc *time.Location) QueryLogDetail {
	detail := QueryLogDetail{
		QueryLogRecord:      w.wireRecord.normalize(loc),
		UserName:            w.UserName,
		ConversationID:      firstNonEmpty(w.ConversationID, w.ConversationBedrock),
		TokensInput:         firstInt(w.TokensInput),
		TokensOutput:        firstInt(w.TokensOutput),
		TokensTotal:         firstInt(w.TokensTotal),
		VectorDBTimeMs:      firstInt(w.VectorDBTimeMs),
		LLMProcessingTimeMs: firstInt(w.LLMProcessingTimeMs),
		LambdaRequestID:     w.LambdaRequestID,
		APIGatewayRequestID: w.APIGatewayRequestID,
		SourceIP:            w.SourceIP,
		ToolsUsed:           w.ToolsUsed,
		ToolResults:         w.ToolResults,
	}
	if w.LLMResponse != nil {
		detail.Response = *w.LLMResponse
	}
	return detail
}
