package macro

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRender_ReplacesKnownMacros(t *testing.T) {
	ctx := map[string]string{
		"user_id":        "alice",
		"payout":         "12",
		"points":         "12",
		"transaction_id": "tx-9",
	}

	got := Render("https://partner.example/cb?uid={user_id}&amt={payout}&pts={points}&tx={transaction_id}&tx2={transaction_id}", ctx)

	assert.Equal(t, "https://partner.example/cb?uid=alice&amt=12&pts=12&tx=tx-9&tx2=tx-9", got)
}

func TestRender_MissingContextValueBecomesEmpty(t *testing.T) {
	assert.Equal(t, "u=&s=ok", Render("u={username}&s={status}", map[string]string{"status": "ok"}))
}

func TestRender_UnknownTokensPassThrough(t *testing.T) {
	ctx := map[string]string{"user_id": "alice"}

	assert.Equal(t, "{unknown_token}", Render("{unknown_token}", ctx))
	assert.Equal(t, "a={sub_aff}&u=alice", Render("a={sub_aff}&u={user_id}", ctx))
	assert.Equal(t, "{User_ID}", Render("{User_ID}", ctx))
}

func TestRender_MalformedBraces(t *testing.T) {
	ctx := map[string]string{"user_id": "alice"}

	cases := map[string]string{
		"{user_id":         "{user_id",
		"user_id}":         "user_id}",
		"{{user_id}}":      "{alice}",
		"x={}&u={user_id}": "x={}&u=alice",
		"{a{user_id}b}":    "{aaliceb}",
		"no macros at all": "no macros at all",
	}
	for in, want := range cases {
		assert.Equal(t, want, Render(in, ctx), in)
	}
}

func TestRender_NoDoubleSubstitution(t *testing.T) {
	ctx := map[string]string{"user_id": "{payout}", "payout": "12"}

	assert.Equal(t, "u={payout}&p=12", Render("u={user_id}&p={payout}", ctx))
}

func TestRender_Idempotent(t *testing.T) {
	ctx := map[string]string{"user_id": "alice", "click_id": "CLK-001", "payout": "12"}
	templates := []string{
		"https://a.example/?u={user_id}&c={click_id}",
		"https://b.example/{payout}/{status}",
		"https://c.example/?keep={custom}&u={user_id}",
		"plain",
	}

	for _, tmpl := range templates {
		once := Render(tmpl, ctx)
		if HasMacros(once) {
			continue
		}
		assert.Equal(t, once, Render(once, ctx), tmpl)
	}
}

func TestHasMacros(t *testing.T) {
	assert.True(t, HasMacros("x={click_id}"))
	assert.False(t, HasMacros("x={custom}"))
	assert.False(t, HasMacros("https://plain.example"))
}

func TestExtractMacros(t *testing.T) {
	got := ExtractMacros("{user_id}/{custom}/{user_id}?p={payout}")

	assert.Equal(t, []string{"user_id", "custom", "payout"}, got)
	assert.Nil(t, ExtractMacros("none"))
}

func TestValidateMacros(t *testing.T) {
	ok, unsupported := ValidateMacros("u={user_id}&p={points}")
	assert.True(t, ok)
	assert.Empty(t, unsupported)

	ok, unsupported = ValidateMacros("u={user_id}&s={sub1}&a={aff_sub}")
	assert.False(t, ok)
	assert.Equal(t, []string{"sub1", "aff_sub"}, unsupported)
}

func TestSupported_IsStableCopy(t *testing.T) {
	vocab := Supported()
	assert.Len(t, vocab, 9)
	vocab[0] = "mutated"
	assert.Equal(t, UserID, Supported()[0])
}
