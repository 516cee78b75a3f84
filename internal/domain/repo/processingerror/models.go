package processingerror

import (
	"time"

	"github.com/conference-manager/meeting-publisher/internal/domain/entity"
)

// DeadLetter is the object written for every publication request that could not be handled.
type DeadLetter struct {
	Writer  Writer                     `json:"writer"`
	Message Message                    `json:"message"`
	Request *entity.PublicationRequest `json:"request,omitempty"`
	Inputs  []Input                    `json:"inputs,omitempty"`
	Reason  Reason                     `json:"reason"`
}

type Writer struct {
	Name     string    `json:"name"`
	Version  string    `json:"version"`
	Branch   string    `json:"branch"`
	Revision string    `json:"revision"`
	Host     string    `json:"host"`
	Time     time.Time `json:"time"`
}

// Message is the kafka message as consumed. Payload is kept raw since it may not be valid json.
type Message struct {
	Topic     string    `json:"topic"`
	Partition int32     `json:"partition"`
	Offset    int64     `json:"offset"`
	Timestamp time.Time `json:"timestamp"`
	Key       []byte    `json:"key,omitempty"`
	Payload   []byte    `json:"payload"`
}

type Input struct {
	Source string `json:"source"`
	Key    string `json:"key"`
	Value  string `json:"value"`
}

type Reason struct {
	Category  string `json:"category"`
	Error     string `json:"error"`
	Retryable bool   `json:"retryable"`
}
