package service

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"strings"
	"sync"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/vitaup/vitacore/internal/model"
	"github.com/vitaup/vitacore/internal/provider/llm"
)

const defaultCoachTone = "friendly"

// BuildCoachContext assembles the payload sent to the coach model. It performs
// no I/O.
func BuildCoachContext(message string, ledger model.DailyLedger, targets model.DailyTargets, settings model.CoachSettings) model.CoachContext {
	settings.Tone = strings.TrimSpace(settings.Tone)
	if settings.Tone == "" {
		settings.Tone = defaultCoachTone
	}
	settings.Goal = normalizeGoal(settings.Goal)
	if settings.Goal == "" {
		settings.Goal = model.GoalMaintain
	}
	return model.CoachContext{
		Date:         ledger.Date,
		UserMessage:  strings.TrimSpace(message),
		DailySummary: Summarize(targets, ledger),
		Settings:     settings,
	}
}

// ParseCoachReply never fails. Text that is not a JSON object with a string
// reply comes back as a plain reply with no actions.
func ParseCoachReply(raw string) model.CoachReply {
	plain := model.CoachReply{Reply: strings.TrimSpace(raw), Actions: []model.CoachAction{}}

	doc := llm.CleanResponse(raw)
	if !gjson.Valid(doc) {
		return plain
	}
	parsed := gjson.Parse(doc)
	reply := parsed.Get("reply")
	if !parsed.IsObject() || reply.Type != gjson.String {
		return plain
	}

	out := model.CoachReply{
		Reply:      strings.TrimSpace(reply.Str),
		Actions:    []model.CoachAction{},
		Structured: true,
	}
	parsed.Get("actions").ForEach(func(_, v gjson.Result) bool {
		if a, ok := parseCoachAction(v); ok {
			out.Actions = append(out.Actions, a)
		}
		return true
	})
	return out
}

func parseCoachAction(v gjson.Result) (model.CoachAction, bool) {
	if !v.IsObject() {
		return model.CoachAction{}, false
	}
	typ := strings.TrimSpace(v.Get("type").String())
	if typ == "" {
		return model.CoachAction{}, false
	}
	a := model.CoachAction{Type: typ}
	v.ForEach(func(key, val gjson.Result) bool {
		switch key.String() {
		case "type":
		case "title":
			a.Title = strings.TrimSpace(val.String())
		case "target_ml":
			a.TargetMl = int(val.Int())
		case "minutes":
			a.Minutes = int(val.Int())
		case "calories":
			a.Calories = int(val.Int())
		default:
			if a.Fields == nil {
				a.Fields = map[string]json.RawMessage{}
			}
			a.Fields[key.String()] = json.RawMessage(val.Raw)
		}
		return true
	})
	return a, true
}

type completer interface {
	Complete(ctx context.Context, req llm.Request) (string, []byte, error)
}

// CoachObserver is told whether each reply came back structured.
type CoachObserver interface {
	ObserveCoachReply(structured bool)
}

type Coach struct {
	client completer
	log    *zap.Logger
	obs    CoachObserver
}

func NewCoach(client *llm.Client, log *zap.Logger, obs CoachObserver) *Coach {
	if log == nil {
		log = zap.NewNop()
	}
	c := &Coach{log: log, obs: obs}
	if client != nil {
		c.client = client
	}
	return c
}

// Ask sends the context as system_context and parses whatever comes back.
func (c *Coach) Ask(ctx context.Context, cc model.CoachContext) (model.CoachReply, error) {
	if c.client == nil {
		return model.CoachReply{}, fmt.Errorf("coach endpoint is not configured")
	}
	if cc.UserMessage == "" {
		return model.CoachReply{}, invalidInput("coach message is required")
	}
	system, err := json.Marshal(cc)
	if err != nil {
		return model.CoachReply{}, fmt.Errorf("marshal coach context: %w", err)
	}
	text, _, err := c.client.Complete(ctx, llm.Request{SystemContext: string(system), UserMessage: cc.UserMessage})
	if err != nil {
		return model.CoachReply{}, fmt.Errorf("ask coach: %w", err)
	}
	reply := ParseCoachReply(text)
	if !reply.Structured {
		c.log.Info("coach replied with plain text", zap.String("date", cc.Date), zap.Int("length", len(text)))
	}
	if c.obs != nil {
		c.obs.ObserveCoachReply(reply.Structured)
	}
	return reply, nil
}

// Motivator picks an encouragement line for a day. A fixed seed gives a fixed
// sequence.
type Motivator struct {
	mu    sync.Mutex
	rng   *rand.Rand
	lines map[string][]string
}

var defaultMotivation = map[string][]string{
	"start": {
		"Every day is a fresh start. Log your first meal!",
		"Small steps count. Start with a glass of water.",
	},
	"on_track": {
		"You're on track today, keep it steady.",
		"Nice balance so far. Keep going!",
	},
	"over": {
		"You went past today's budget. Tomorrow is a new page.",
		"A bit over today. A walk can help balance it out.",
	},
	"done": {
		"Goal reached! Great consistency today.",
		"Right on target. Well done!",
	},
}

func NewMotivator(seed int64, lines map[string][]string) *Motivator {
	if len(lines) == 0 {
		lines = defaultMotivation
	}
	return &Motivator{rng: rand.New(rand.NewSource(seed)), lines: lines}
}

func (m *Motivator) Line(s model.DailySummary) string {
	pool := m.lines[motivationBucket(s)]
	if len(pool) == 0 {
		return ""
	}
	m.mu.Lock()
	i := m.rng.Intn(len(pool))
	m.mu.Unlock()
	return pool[i]
}

func motivationBucket(s model.DailySummary) string {
	switch {
	case s.Ledger.EntryCount == 0:
		return "start"
	case AdherenceWithin(float64(s.Ledger.CaloriesConsumed), s.Targets.DailyCalories, 0.10):
		return "done"
	case s.CaloriesPercent > 100:
		return "over"
	default:
		return "on_track"
	}
}
