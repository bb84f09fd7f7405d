package main

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(args ...string) (string, error) {
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestValidateMacros(t *testing.T) {
	out, err := run("validate-macros", "https://pub.example/cb?u={user_id}&p={points}")
	require.NoError(t, err)
	assert.Contains(t, out, "user_id, points")
	assert.Contains(t, out, "OK")

	out, err = run("validate-macros", "https://pub.example/cb?u={user_id}&s={sub_id}")
	assert.Error(t, err)
	assert.Contains(t, out, "unsupported: sub_id")
}

func TestRender(t *testing.T) {
	out, err := run("render", "https://pub.example/cb?u={user_id}&p={points}&x={custom}", "user_id=alice", "points=12")
	require.NoError(t, err)
	assert.Equal(t, "https://pub.example/cb?u=alice&p=12&x={custom}\n", out)

	out, err = run("render", "--json", "{click_id}", "click_id=CLK-001")
	require.NoError(t, err)
	var got map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "CLK-001", got["rendered"])

	_, err = run("render", "{user_id}", "novalue")
	assert.Error(t, err)
}

func TestReplay_RejectsBadID(t *testing.T) {
	_, err := run("replay", "abc")
	assert.Error(t, err)
}
