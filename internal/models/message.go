// Package models holds the bus message types and the request fingerprint.
package models

import (
	"encoding/json"
	"strings"
	"time"
)

// Message is the unit of work and of reply. The wire format is JSON with the
// exact camelCase keys below; ts and funN are read from the wire but never
// serialized back.
type Message struct {
	// ID zero is a well-formed message; the router answers it with the
	// unknown-kind error, so no required tag here.
	ID            float64 `json:"id" bson:"id"`
	Params        Params  `json:"pI" bson:"pI"`
	ReplyTopic    string  `json:"tO" bson:"tO" validate:"required"`
	CorrelationID string  `json:"cid" bson:"cid"`
	CacheMessage  bool    `json:"cacheMessage" bson:"cacheMessage"`
	SourceTopic   string  `json:"stopic" bson:"stopic"`

	// Timestamp and FunctionName arrive on the wire as ts and funN. They are
	// informational; FunctionName participates in the fingerprint but neither
	// is serialized back. See UnmarshalJSON.
	Timestamp    float64 `json:"-" bson:"-"`
	FunctionName string  `json:"-" bson:"funN"`

	Artifact *Artifact `json:"dO,omitempty" bson:"dO,omitempty"`

	ErrorTag         string    `json:"e" bson:"e"`
	Date             time.Time `json:"date" bson:"date"`
	Key              string    `json:"key" bson:"key"`
	ExceptionMessage string    `json:"exceptionMessage" bson:"exceptionMessage"`
}

// Params carries the positional args and keyword args of a request.
type Params struct {
	Args   []string `json:"args" bson:"args"`
	Kwargs Kwargs   `json:"kwargs" bson:"kwargs"`
}

// Kwargs are the well-known keyword arguments.
type Kwargs struct {
	Device      string     `json:"device" bson:"device"`
	UploadToAWS bool       `json:"uploadToAws" bson:"uploadToAws"`
	JSONKeys    StringList `json:"jsonKeys" bson:"jsonKeys"`
	LLMQuery    string     `json:"llmQuery" bson:"llmQuery"`
}

// Artifact describes the object-store output attached to a reply.
type Artifact struct {
	BucketName string          `json:"bucketName" bson:"bucketName"`
	KeyName    string          `json:"keyName" bson:"keyName"`
	Data       json.RawMessage `json:"data" bson:"data"`
	SignedURL  string          `json:"signedUrl" bson:"signedUrl"`
}

// StringList accepts either a JSON array of strings or a single
// comma-separated string; both occur on the wire.
type StringList []string

func (s *StringList) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var raw string
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		if raw == "" {
			*s = nil
			return nil
		}
		*s = strings.Split(raw, ",")
		return nil
	}
	var arr []string
	if err := json.Unmarshal(data, &arr); err != nil {
		return err
	}
	*s = arr
	return nil
}

// Join renders the list as a comma-separated string for the compute runtime.
func (s StringList) Join() string {
	return strings.Join(s, ",")
}

// UnmarshalJSON reads ts and funN off the wire into the unexported-on-output
// fields. Marshaling uses the plain struct tags and therefore omits both.
func (m *Message) UnmarshalJSON(data []byte) error {
	type alias Message
	aux := struct {
		*alias
		TS   float64 `json:"ts"`
		FunN string  `json:"funN"`
	}{alias: (*alias)(m)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	m.Timestamp = aux.TS
	m.FunctionName = aux.FunN
	return nil
}

// ResetForProcessing clears client-supplied error state and stamps the
// processing time. The key is overwritten separately with the fingerprint.
func (m *Message) ResetForProcessing(now time.Time) {
	m.ErrorTag = ""
	m.ExceptionMessage = ""
	m.Date = now.UTC()
}

// UpdateArtifact points the message at an uploaded object. The key name is
// the bucket concatenated with the file name and the signed URL is the
// configured public prefix plus the file name, matching the reply contract.
func (m *Message) UpdateArtifact(bucket, urlPrefix, fileName string) {
	m.Artifact = &Artifact{
		BucketName: bucket,
		KeyName:    bucket + fileName,
		Data:       json.RawMessage(`""`),
		SignedURL:  urlPrefix + fileName,
	}
}
