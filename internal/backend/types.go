package backend

import (
	"encoding/json"
	"time"
)

type Status string

const (
	StatusCompleted Status = "COMPLETED"
	StatusError     Status = "ERROR"
)

// QueryLogRecord is the canonical shape of one logged RAG query/response
// pair. The backend has shipped several overlapping field spellings over
// time; everything is normalized into this type at the client boundary
// and nothing past it sees the wire aliases.
type QueryLogRecord struct {
	ID               string    `json:"id"`
	RequestTimestamp time.Time `json:"requestTimestamp"`
	Person           string    `json:"person"`
	Team             string    `json:"team"`
	ModelID          string    `json:"modelId"`
	KnowledgeBaseID  string    `json:"knowledgeBaseId"`
	QueryText        string    `json:"queryText"`
	Status           Status    `json:"status"`
	TokensUsed       int       `json:"tokensUsed"`
	// ProcessingTimeMs is nil when the backend did not record a timing
	// for the row. Averages must skip such rows entirely rather than
	// count them as zero.
	ProcessingTimeMs *int   `json:"processingTimeMs"`
	ErrorMessage     string `json:"errorMessage,omitempty"`

	// Server-computed diagnostics, displayed as-is.
	TrustScore         float64 `json:"trustScore"`
	TrustCategory      string  `json:"trustCategory,omitempty"`
	StrategyType       string  `json:"strategyType,omitempty"`
	RetrievedDocsCount int     `json:"retrievedDocsCount"`
}

// QueryLogDetail extends the canonical record with the passthrough fields
// only the single-record endpoint returns.
type QueryLogDetail struct {
	QueryLogRecord

	Response            string          `json:"response"`
	UserName            string          `json:"userName,omitempty"`
	ConversationID      string          `json:"conversationId,omitempty"`
	TokensInput         int             `json:"tokensInput"`
	TokensOutput        int             `json:"tokensOutput"`
	TokensTotal         int             `json:"tokensTotal"`
	VectorDBTimeMs      int             `json:"vectorDbTimeMs"`
	LLMProcessingTimeMs int             `json:"llmProcessingTimeMs"`
	LambdaRequestID     string          `json:"lambdaRequestId,omitempty"`
	APIGatewayRequestID string          `json:"apiGatewayRequestId,omitempty"`
	SourceIP            string          `json:"sourceIp,omitempty"`
	ToolsUsed           json.RawMessage `json:"toolsUsed,omitempty"`
	ToolResults         json.RawMessage `json:"toolResults,omitempty"`
}

// AnalyticsSummary mirrors GET /analytics.
type AnalyticsSummary struct {
	PersonStats []PersonStat `json:"personStats"`
	TeamStats   []TeamStat   `json:"teamStats"`
	ModelStats  []ModelStat  `json:"modelStats"`
}

type PersonStat struct {
	Person            string  `json:"person"`
	Count             int     `json:"count"`
	AvgResponseTimeMs float64 `json:"avg_response_time"`
}

type TeamStat struct {
	Team              string  `json:"team"`
	Count             int     `json:"count"`
	AvgResponseTimeMs float64 `json:"avg_response_time"`
}

type ModelStat struct {
	ModelID string `json:"model_id"`
	Count   int    `json:"count"`
}

// FilterOptions mirrors GET /filters: the option lists for the history
// tab dropdowns.
type FilterOptions struct {
	Persons        []string `json:"persons"`
	Teams          []string `json:"teams"`
	Models         []string `json:"models"`
	KnowledgeBases []string `json:"knowledgeBases"`
	Statuses       []string `json:"statuses"`
}

// TrustAnalytics is the pre-aggregated payload of the trust-scoring
// backend. The dashboard never interprets it, so the three sections stay
// raw JSON.
type TrustAnalytics struct {
	Indicators json.RawMessage `json:"indicators"`
	Tables     json.RawMessage `json:"tables"`
	Charts     json.RawMessage `json:"charts"`
}

// LogQuery is the parameter set of GET /query-logs. Zero values mean the
// dimension is not constrained.
type LogQuery struct {
	Person          string
	Team            string
	ModelID         string
	KnowledgeBaseID string
	Status          string
	Search          string
	StartDate       time.Time
	EndDate         time.Time
	Limit           int
	Offset          int
}
