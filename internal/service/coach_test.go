package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vitaup/vitacore/internal/model"
	"github.com/vitaup/vitacore/internal/provider/llm"
)

func TestParseCoachReplyPlainText(t *testing.T) {
	got := ParseCoachReply("plain text, no json")
	assert.Equal(t, "plain text, no json", got.Reply)
	assert.NotNil(t, got.Actions)
	assert.Empty(t, got.Actions)
	assert.False(t, got.Structured)
}

func TestParseCoachReplyStructured(t *testing.T) {
	got := ParseCoachReply(`{"reply":"ok","actions":[{"type":"habit","target_ml":2000}]}`)
	assert.Equal(t, "ok", got.Reply)
	assert.True(t, got.Structured)
	require.Len(t, got.Actions, 1)
	assert.Equal(t, "habit", got.Actions[0].Type)
	assert.Equal(t, 2000, got.Actions[0].TargetMl)
}

func TestParseCoachReplyFencedWithExtraFields(t *testing.T) {
	raw := "Here you go:\n```json\n{\"reply\":\"Try a walk\",\"actions\":[{\"type\":\"workout\",\"title\":\"Walk\",\"minutes\":\"30\",\"intensity\":\"low\"},{\"title\":\"no type\"},7]}\n```"
	got := ParseCoachReply(raw)
	assert.True(t, got.Structured)
	assert.Equal(t, "Try a walk", got.Reply)
	require.Len(t, got.Actions, 1)
	a := got.Actions[0]
	assert.Equal(t, "Walk", a.Title)
	assert.Equal(t, 30, a.Minutes)
	assert.JSONEq(t, `"low"`, string(a.Fields["intensity"]))
}

func TestParseCoachReplyDegradesOnBrokenOrForeignJSON(t *testing.T) {
	for _, raw := range []string{
		`{"reply": "cut off`,
		`{"message":"hi"}`,
		`{"reply": 42}`,
		`["reply"]`,
		"",
	} {
		got := ParseCoachReply(raw)
		assert.False(t, got.Structured, raw)
		assert.Equal(t, raw, got.Reply)
		assert.Empty(t, got.Actions)
	}
}

func TestBuildCoachContext(t *testing.T) {
	ledger := model.DailyLedger{Date: "2024-03-10", CaloriesConsumed: 1500, CaloriesBurned: 200, WaterMl: 1000, EntryCount: 4}
	targets := model.DailyTargets{DailyCalories: 2000, WaterMl: 2000}

	cc := BuildCoachContext("  how am I doing? ", ledger, targets, model.CoachSettings{Goal: "Lose"})
	assert.Equal(t, "2024-03-10", cc.Date)
	assert.Equal(t, "how am I doing?", cc.UserMessage)
	assert.Equal(t, defaultCoachTone, cc.Settings.Tone)
	assert.Equal(t, model.GoalLose, cc.Settings.Goal)
	assert.Equal(t, 700.0, cc.DailySummary.RemainingCalories)
	assert.Equal(t, 75.0, cc.DailySummary.CaloriesPercent)
	assert.Equal(t, 50.0, cc.DailySummary.WaterPercent)
}

type fakeCompleter struct {
	got   llm.Request
	reply string
	err   error
}

func (f *fakeCompleter) Complete(_ context.Context, req llm.Request) (string, []byte, error) {
	f.got = req
	return f.reply, []byte(f.reply), f.err
}

type countingCoachObserver struct{ structured, plain int }

func (o *countingCoachObserver) ObserveCoachReply(structured bool) {
	if structured {
		o.structured++
	} else {
		o.plain++
	}
}

func TestCoachAskSendsContextAndParsesReply(t *testing.T) {
	fc := &fakeCompleter{reply: "Drink some water."}
	obs := &countingCoachObserver{}
	c := &Coach{client: fc, log: zap.NewNop(), obs: obs}

	cc := BuildCoachContext("hi", model.DailyLedger{Date: "2024-03-10"}, model.DailyTargets{DailyCalories: 1800}, model.CoachSettings{})
	reply, err := c.Ask(context.Background(), cc)
	require.NoError(t, err)
	assert.Equal(t, "Drink some water.", reply.Reply)
	assert.Equal(t, 1, obs.plain)

	assert.Equal(t, "hi", fc.got.UserMessage)
	var sent model.CoachContext
	require.NoError(t, json.Unmarshal([]byte(fc.got.SystemContext), &sent))
	assert.Equal(t, 1800.0, sent.DailySummary.Targets.DailyCalories)
}

func TestCoachAskPropagatesTransportError(t *testing.T) {
	c := NewCoach(nil, nil, nil)
	_, err := c.Ask(context.Background(), model.CoachContext{UserMessage: "hi"})
	assert.EqualError(t, err, "coach endpoint is not configured")

	c.client = &fakeCompleter{err: errors.New("boom")}
	_, err = c.Ask(context.Background(), model.CoachContext{UserMessage: "hi"})
	assert.EqualError(t, err, "ask coach: boom")
}

func TestMotivatorIsSeedable(t *testing.T) {
	s := model.DailySummary{Ledger: model.DailyLedger{EntryCount: 2}, CaloriesPercent: 120}
	a := NewMotivator(7, nil)
	b := NewMotivator(7, nil)
	for i := 0; i < 5; i++ {
		line := a.Line(s)
		assert.Equal(t, line, b.Line(s))
		assert.Contains(t, defaultMotivation["over"], line)
	}
	assert.Contains(t, defaultMotivation["start"], a.Line(model.DailySummary{}))
}

func TestMotivationBucket(t *testing.T) {
	targets := model.DailyTargets{DailyCalories: 2000}
	cases := map[int]string{500: "on_track", 1850: "done", 2150: "done", 2300: "over"}
	for consumed, want := range cases {
		s := Summarize(targets, model.DailyLedger{CaloriesConsumed: consumed, EntryCount: 1})
		assert.Equal(t, want, motivationBucket(s), "consumed %d", consumed)
	}
	assert.Equal(t, "start", motivationBucket(Summarize(targets, model.DailyLedger{})))
}
