package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeEvent_Envelope(t *testing.T) {
	data := []byte(`{
		"Event": {
			"id": "7",
			"info": "Ransomware note",
			"Orgc": {"name": "CERT-EU", "uuid": "1b2c"},
			"Attribute": [{"type": "md5", "AttributeTag": [{"Tag": {"name": "tlp:red"}}]}],
			"EventTag": [{"Tag": {"name": "type:OSINT"}}]
		}
	}`)

	event, err := DecodeEvent(data)
	require.NoError(t, err)
	assert.Equal(t, "7", event.ID)
	require.NotNil(t, event.Orgc)
	assert.Equal(t, "CERT-EU", event.Orgc.Name)
	assert.Equal(t, []string{"tlp:red", "type:OSINT"}, ExtractValues(FieldTagName, event))
}

func TestDecodeEvent_Bare(t *testing.T) {
	event, err := DecodeEvent([]byte(`{"info": "bare", "EventTag": [{"Tag": {"name": "tlp:white"}}]}`))
	require.NoError(t, err)
	assert.Equal(t, "bare", event.Info)
	assert.Equal(t, []string{"tlp:white"}, ExtractValues(FieldEventTagName, event))
}

func TestDecodeEvent_SiblingCollections(t *testing.T) {
	data := []byte(`{
		"Event": {"info": "split", "EventTag": [{"Tag": {"name": "a"}}]},
		"Orgc": {"name": "ORG"},
		"EventTag": [{"Tag": {"name": "b"}}],
		"Object": [{"name": "file", "Attribute": [{"AttributeTag": [{"Tag": {"name": "c"}}]}]}]
	}`)

	event, err := DecodeEvent(data)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, ExtractValues(FieldEventTagName, event))
	assert.Equal(t, []string{"c"}, ExtractValues(FieldAttributeTagName, event))
	assert.Equal(t, []string{"ORG"}, ExtractValues(FieldOrgcName, event))
}

func TestDecodeEvent_InvalidJSON(t *testing.T) {
	_, err := DecodeEvent([]byte(`{"Event":`))
	assert.Error(t, err)
}
