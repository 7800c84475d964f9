package models

import (
	"encoding/json"
	"testing"

	"github.com/grovetools/devsync/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeWireMessages(t *testing.T) {
	tests := []struct {
		name string
		wire string
		want ChangeEvent
	}{
		{
			name: "inline",
			wire: `{"type":"inline","selector":"#box","style":"color: red;"}`,
			want: NewInlineStyle("#box", "color: red;", ""),
		},
		{
			name: "css rule",
			wire: `{"type":"cssRule","selector":".card","style":"margin: 0px;"}`,
			want: NewCSSRule(".card", "margin: 0px;", ""),
		},
		{
			name: "drag with file",
			wire: `{"type":"drag","selector":"#box","position":{"left":"10px","top":"20px"},"filePath":"file:///tmp/index.html"}`,
			want: NewDrag("#box", "10px", "20px", "file:///tmp/index.html"),
		},
		{
			name: "resize",
			wire: `{"type":"resize","selector":"#panel","size":{"width":"120px","height":"80px"}}`,
			want: NewResize("#panel", "120px", "80px", ""),
		},
		{
			name: "extra fields are ignored",
			wire: `{"type":"inline","selector":"#box","style":"color: red;","extra":1}`,
			want: NewInlineStyle("#box", "color: red;", ""),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode([]byte(tt.wire))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecodeMalformed(t *testing.T) {
	for _, wire := range []string{
		`not json`,
		`{"selector":"#box"}`,
		`{"type":"teleport","selector":"#box"}`,
		`{"type":"drag","selector":"#box","position":{"left":10,"top":"20px"}}`,
		`["inline","#box"]`,
	} {
		_, err := Decode([]byte(wire))
		require.Error(t, err, wire)
		assert.True(t, errors.Is(err, errors.ErrCodeMalformedMessage), "%s: %v", wire, err)
	}
}

func TestEncodeUsesWireNames(t *testing.T) {
	data, err := Encode(NewResize("#panel", "120px", "80px", "file:///p.html"))
	require.NoError(t, err)

	var raw map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, "resize", raw["type"])
	assert.Equal(t, "file:///p.html", raw["filePath"])
	assert.Equal(t, map[string]interface{}{"width": "120px", "height": "80px"}, raw["size"])
	assert.NotContains(t, raw, "style")
}

func TestValidate(t *testing.T) {
	assert.NoError(t, NewDrag("#box", "1px", "2px", "").Validate())

	err := NewDrag("  ", "1px", "2px", "").Validate()
	assert.True(t, errors.Is(err, errors.ErrCodeMissingSelector))

	err = ChangeEvent{Kind: KindDrag, Selector: "#box"}.Validate()
	assert.True(t, errors.Is(err, errors.ErrCodeMissingPayload))

	err = ChangeEvent{Kind: KindResize, Selector: "#box"}.Validate()
	assert.True(t, errors.Is(err, errors.ErrCodeMissingPayload))

	err = NewInlineStyle("#box", "", "").Validate()
	assert.True(t, errors.Is(err, errors.ErrCodeMissingPayload))

	for _, ev := range []ChangeEvent{
		NewDrag("#box", "", "", ""),
		NewDrag("#box", "10px", " ", ""),
		NewResize("#panel", "", "80px", ""),
		NewResize("#panel", "120px", "", ""),
	} {
		assert.True(t, errors.Is(ev.Validate(), errors.ErrCodeMissingPayload), ev.Summary())
	}
}

func TestGenerateSchema(t *testing.T) {
	data, err := GenerateSchema()
	require.NoError(t, err)

	var schema map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &schema))
	props, ok := schema["properties"].(map[string]interface{})
	require.True(t, ok)
	for _, key := range []string{"type", "selector", "style", "position", "size", "filePath"} {
		assert.Contains(t, props, key)
	}
	assert.ElementsMatch(t, []interface{}{"type", "selector"}, schema["required"])
}
