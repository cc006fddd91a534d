// Copyright 2026 The Watchtower Authors
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"bytes"
	"testing"
)

// sampleSighting mirrors the wire-type convention: json tags only,
// read by the CBOR codec as fallback.
type sampleSighting struct {
	Identity    string `json:"identity"`
	DisplayName string `json:"display_name"`
	Level       int    `json:"level"`
	Online      bool   `json:"online"`
}

func TestMarshalUnmarshalRoundtrip(t *testing.T) {
	original := sampleSighting{
		Identity:    "f3a1c2",
		DisplayName: "Lord Hargrave",
		Level:       27,
		Online:      true,
	}

	data, err := Marshal(original)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if len(data) == 0 {
		t.Fatal("Marshal produced empty output")
	}

	var decoded sampleSighting
	if err := Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if decoded != original {
		t.Errorf("roundtrip mismatch: got %+v, want %+v", decoded, original)
	}
}

func TestMarshalDeterministic(t *testing.T) {
	message := sampleSighting{
		Identity:    "9b40de",
		DisplayName: "Eira of the Vale",
		Level:       31,
	}

	first, err := Marshal(message)
	if err != nil {
		t.Fatalf("first Marshal: %v", err)
	}
	second, err := Marshal(message)
	if err != nil {
		t.Fatalf("second Marshal: %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Errorf("deterministic encoding violated: %x != %x", first, second)
	}
}

func TestJSONTagsControlFieldNames(t *testing.T) {
	data, err := Marshal(sampleSighting{Identity: "f3a1c2", DisplayName: "Lord Hargrave"})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	// Decoding into any exercises DefaultMapType and exposes the
	// encoded key names.
	var decoded any
	if err := Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	fields, ok := decoded.(map[string]any)
	if !ok {
		t.Fatalf("decoded type = %T, want map[string]any", decoded)
	}
	if got := fields["display_name"]; got != "Lord Hargrave" {
		t.Errorf("display_name = %v, want %q", got, "Lord Hargrave")
	}
	if _, present := fields["DisplayName"]; present {
		t.Error("found Go field name DisplayName in encoding; json tag not honored")
	}
}

func TestEncoderDecoderStreamRoundtrip(t *testing.T) {
	messages := []sampleSighting{
		{Identity: "f3a1c2", DisplayName: "Lord Hargrave", Level: 27, Online: true},
		{Identity: "9b40de", DisplayName: "Eira of the Vale", Level: 31},
		{Identity: "77c09a", DisplayName: "Brand", Level: 2, Online: true},
	}

	var buffer bytes.Buffer
	encoder := NewEncoder(&buffer)
	for index, message := range messages {
		if err := encoder.Encode(message); err != nil {
			t.Fatalf("Encode message %d: %v", index, err)
		}
	}

	decoder := NewDecoder(&buffer)
	for index, want := range messages {
		var got sampleSighting
		if err := decoder.Decode(&got); err != nil {
			t.Fatalf("Decode message %d: %v", index, err)
		}
		if got != want {
			t.Errorf("message %d: got %+v, want %+v", index, got, want)
		}
	}
}
