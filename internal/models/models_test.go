package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const wireMessage = `{
	"id": 1.0,
	"pI": {"args": ["etf_us_tqqq","etf_us_qqq"], "kwargs": {"device":"", "uploadToAws":true, "jsonKeys":"a,b", "llmQuery":""}},
	"tO": "reply-topic",
	"cid": "C1",
	"cacheMessage": true,
	"stopic": "source-topic",
	"ts": 1700000000.5,
	"funN": "get_leveraged_funds"
}`

func TestMessageWireRoundTrip(t *testing.T) {
	var msg Message
	require.NoError(t, json.Unmarshal([]byte(wireMessage), &msg))

	assert.Equal(t, 1.0, msg.ID)
	assert.Equal(t, []string{"etf_us_tqqq", "etf_us_qqq"}, msg.Params.Args)
	assert.Equal(t, StringList{"a", "b"}, msg.Params.Kwargs.JSONKeys)
	assert.True(t, msg.Params.Kwargs.UploadToAWS)
	assert.Equal(t, "reply-topic", msg.ReplyTopic)
	assert.Equal(t, 1700000000.5, msg.Timestamp)
	assert.Equal(t, "get_leveraged_funds", msg.FunctionName)

	// ts and funN are read-only wire fields: they must not serialize back.
	out, err := json.Marshal(&msg)
	require.NoError(t, err)
	assert.NotContains(t, string(out), `"ts"`)
	assert.NotContains(t, string(out), `"funN"`)
	assert.Contains(t, string(out), `"tO":"reply-topic"`)
}

func TestStringListAcceptsArrayAndCSV(t *testing.T) {
	var fromCSV StringList
	require.NoError(t, json.Unmarshal([]byte(`"a,b,c"`), &fromCSV))
	assert.Equal(t, StringList{"a", "b", "c"}, fromCSV)

	var fromArray StringList
	require.NoError(t, json.Unmarshal([]byte(`["a","b","c"]`), &fromArray))
	assert.Equal(t, StringList{"a", "b", "c"}, fromArray)

	var empty StringList
	require.NoError(t, json.Unmarshal([]byte(`""`), &empty))
	assert.Nil(t, empty)

	assert.Equal(t, "a,b,c", fromCSV.Join())
}

func TestResetForProcessing(t *testing.T) {
	msg := Message{ErrorTag: "Error", ExceptionMessage: "old failure"}
	now := time.Date(2026, 8, 24, 10, 0, 0, 0, time.FixedZone("X", 3600))

	msg.ResetForProcessing(now)

	assert.Empty(t, msg.ErrorTag)
	assert.Empty(t, msg.ExceptionMessage)
	assert.Equal(t, now.UTC(), msg.Date)
}

func TestUpdateArtifact(t *testing.T) {
	var msg Message
	msg.UpdateArtifact("sravz", "https://usc1.contabostorage.com/abc:sravz/rust-backend/", "deadbeef.png")

	require.NotNil(t, msg.Artifact)
	assert.Equal(t, "sravz", msg.Artifact.BucketName)
	assert.Equal(t, "sravzdeadbeef.png", msg.Artifact.KeyName)
	assert.Equal(t, "https://usc1.contabostorage.com/abc:sravz/rust-backend/deadbeef.png", msg.Artifact.SignedURL)
	assert.Equal(t, `""`, string(msg.Artifact.Data))
}

func TestFingerprintDeterministicAndSensitive(t *testing.T) {
	base := func() *Message {
		var msg Message
		require.NoError(t, json.Unmarshal([]byte(wireMessage), &msg))
		return &msg
	}

	a := Fingerprint(base())
	b := Fingerprint(base())
	assert.Equal(t, a, b)
	assert.Len(t, a, 64)

	// cid, reply topic and ts do not participate.
	c := base()
	c.CorrelationID = "C2"
	c.ReplyTopic = "other"
	c.Timestamp = 42
	assert.Equal(t, a, Fingerprint(c))

	// id, args, function name and kwargs all do.
	d := base()
	d.ID = 1.001
	assert.NotEqual(t, a, Fingerprint(d))

	e := base()
	e.Params.Args = []string{"etf_us_tqqq"}
	assert.NotEqual(t, a, Fingerprint(e))

	f := base()
	f.FunctionName = "other_fn"
	assert.NotEqual(t, a, Fingerprint(f))

	g := base()
	g.Params.Kwargs.LLMQuery = "query"
	assert.NotEqual(t, a, Fingerprint(g))
}

func TestFingerprintArgBoundariesDistinct(t *testing.T) {
	joined := &Message{ID: 1.0, Params: Params{Args: []string{"a,b"}}}
	split := &Message{ID: 1.0, Params: Params{Args: []string{"a", "b"}}}
	assert.NotEqual(t, Fingerprint(joined), Fingerprint(split))

	quoted := &Message{ID: 1.0, Params: Params{Args: []string{`a","b`}}}
	assert.NotEqual(t, Fingerprint(split), Fingerprint(quoted))
}

func TestFingerprintKwargCasingCanonicalizes(t *testing.T) {
	var msg Message
	require.NoError(t, json.Unmarshal([]byte(wireMessage), &msg))

	upper := msg
	upper.Params.Kwargs.Device = "GPU"
	lower := msg
	lower.Params.Kwargs.Device = "gpu"

	assert.Equal(t, Fingerprint(&lower), Fingerprint(&upper))
}

func TestCanonicalKwargsSortedAndLowercased(t *testing.T) {
	out := CanonicalKwargs(Kwargs{
		Device:      "GPU",
		UploadToAWS: true,
		JSONKeys:    StringList{"Close", "Open"},
		LLMQuery:    "Compare These",
	})

	assert.Equal(t,
		`{device:"gpu",json_keys:"close,open",llm_query:"compare these",upload_to_aws:true}`,
		out)
}
