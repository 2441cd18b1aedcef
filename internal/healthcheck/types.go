package healthcheck

import "time"

// Mode is the call mode a health probe exercises, matching the provider
// adapters' capability surface (pkg/provider.Provider plus the optional
// TranscriptionProvider/ImageGenerationProvider/RerankProvider extensions).
type Mode string

const (
	ModeChat               Mode = "chat"
	ModeEmbedding          Mode = "embedding"
	ModeAudioSpeech        Mode = "audio_speech"
	ModeAudioTranscription Mode = "audio_transcription"
	ModeImageGeneration    Mode = "image_generation"
	ModeRerank             Mode = "rerank"
)

// Target is one deployment to probe. Models is an ordered candidate list:
// Models[0] is the concrete model to probe (substituted for a wildcard
// deployment per spec.md's "provider/*" rule), Models[1:] are up to N-1
// fallback candidates tried in order if the first probe call fails.
type Target struct {
	DeploymentID string
	Models       []string
	Mode         Mode
}

// Result is the outcome of probing one Target, the value persisted under
// Store["health:{id}"].
type Result struct {
	DeploymentID string    `json:"deployment_id"`
	Mode         Mode      `json:"mode"`
	Model        string    `json:"model"` // the candidate that was actually probed
	Healthy      bool      `json:"healthy"`
	CheckedAt    time.Time `json:"checked_at"`
	Error        string    `json:"error,omitempty"`
	LatencyMs    float64   `json:"latency_ms"`
}

// Readiness is the cached snapshot Router.Readiness returns, per spec.md
// §4.8/§6.4: "allow_requests_on_db_unavailable" is honored by returning
// this last-known-good snapshot on a sink error rather than propagating.
type Readiness struct {
	Ready               bool      `json:"ready"`
	CheckedAt           time.Time `json:"checked_at"`
	TotalDeployments     int      `json:"total_deployments"`
	HealthyDeployments   int      `json:"healthy_deployments"`
	UnhealthyDeployments []string `json:"unhealthy_deployments,omitempty"`
	CallbacksRegistered  int      `json:"callbacks_registered"`
}
