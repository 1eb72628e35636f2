package templates

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sandeepkv93/schedd/internal/model"
)

var anchor = model.NewDate(2025, time.October, 1)

func clock(t *testing.T, s string) int {
	t.Helper()
	m, err := model.ParseClock(s)
	require.NoError(t, err)
	return m
}

func TestBuiltinNames(t *testing.T) {
	assert.Equal(t, []string{"deep_work_sprint", "interview_loop", "pitch_prep", "pomodoro_stack"}, Builtin().Names())
}

func TestExpandPitchPrep(t *testing.T) {
	plan, err := Builtin().Expand("pitch_prep", anchor, nil, PlanOptions{})
	require.NoError(t, err)
	require.Len(t, plan.Blocks, 3)
	assert.Empty(t, plan.Unplaced)

	research := plan.Blocks[0]
	assert.Equal(t, "Research", research.Title)
	assert.Equal(t, anchor, research.Anchor)
	assert.Equal(t, clock(t, "12:00"), research.Start)
	assert.Equal(t, clock(t, "13:00"), research.End)
	assert.Equal(t, "Work", research.Label)

	assert.Equal(t, "Draft", plan.Blocks[1].Title)
	assert.Equal(t, anchor.AddDays(1), plan.Blocks[1].Anchor)
	assert.Equal(t, clock(t, "08:00"), plan.Blocks[1].Start)

	assert.Equal(t, "Rehearsal", plan.Blocks[2].Title)
	assert.Equal(t, clock(t, "17:00"), plan.Blocks[2].Start)
	assert.Equal(t, clock(t, "17:45"), plan.Blocks[2].End)
}

func TestExpandRespectsBusy(t *testing.T) {
	busy := []model.TimeInterval{{Date: anchor, Start: clock(t, "12:00"), End: clock(t, "12:32")}}
	plan, err := Builtin().Expand("pitch_prep", anchor, busy, PlanOptions{})
	require.NoError(t, err)
	assert.Equal(t, clock(t, "12:35"), plan.Blocks[0].Start, "first fit at 5 minute granularity")
}

func TestExpandBuffers(t *testing.T) {
	plan, err := Builtin().Expand("pomodoro_stack", anchor, nil, PlanOptions{})
	require.NoError(t, err)
	require.Len(t, plan.Blocks, 2)
	assert.Equal(t, clock(t, "12:00"), plan.Blocks[0].Start)
	assert.Equal(t, clock(t, "12:25"), plan.Blocks[0].End)
	assert.Equal(t, clock(t, "12:30"), plan.Blocks[1].Start, "five minute buffer before the second block")
}

func TestExpandPinnedStepsCarryTemplateDefaults(t *testing.T) {
	plan, err := Builtin().Expand("interview_loop", anchor, nil, PlanOptions{})
	require.NoError(t, err)
	require.Len(t, plan.Blocks, 4)
	for _, b := range plan.Blocks {
		assert.Equal(t, model.ModalityZoom, b.Modality)
		assert.Equal(t, "Hiring", b.Label)
	}
	assert.Equal(t, clock(t, "11:15"), plan.Blocks[2].Start)
	assert.Equal(t, "Allow transition", plan.Blocks[1].Description)
}

func TestExpandFallsBackToWorkHours(t *testing.T) {
	busy := []model.TimeInterval{{Date: anchor, Start: clock(t, "08:00"), End: clock(t, "12:00")}}
	plan, err := Builtin().Expand("deep_work_sprint", anchor, busy, PlanOptions{})
	require.NoError(t, err)
	require.Len(t, plan.Blocks, 3)
	assert.Equal(t, clock(t, "12:00"), plan.Blocks[0].Start)
	assert.Equal(t, clock(t, "08:00"), plan.Blocks[1].Start)
}

func TestExpandReportsUnplaced(t *testing.T) {
	busy := []model.TimeInterval{{Date: anchor, Start: 0, End: model.MinutesPerDay}}
	plan, err := Builtin().Expand("pomodoro_stack", anchor, busy, PlanOptions{})
	require.NoError(t, err)
	assert.Empty(t, plan.Blocks)
	assert.Len(t, plan.Unplaced, 2)
}

func TestExpandUnknown(t *testing.T) {
	_, err := Builtin().Expand("nope", anchor, nil, PlanOptions{})
	assert.ErrorIs(t, err, ErrUnknownTemplate)
}

func TestLoadOverridesAndAdds(t *testing.T) {
	lib, err := Load(strings.NewReader(`
templates:
  - name: standup
    steps:
      - title: Standup
        duration: 15
        at: "09:30"
  - name: pomodoro_stack
    steps:
      - title: Single
        duration: 50
        window: evening
`))
	require.NoError(t, err)
	assert.Len(t, lib.Names(), 5)

	plan, err := lib.Expand("POMODORO_STACK", anchor, nil, PlanOptions{})
	require.NoError(t, err)
	require.Len(t, plan.Blocks, 1)
	assert.Equal(t, clock(t, "17:00"), plan.Blocks[0].Start)
}

func TestLoadRejectsInvalid(t *testing.T) {
	_, err := Load(strings.NewReader("templates:\n  - name: x\n    steps:\n      - title: a\n        duration: 10\n        window: brunch\n"))
	assert.Error(t, err)

	_, err = Load(strings.NewReader("templates:\n  - name: x\n    colour: red\n    steps:\n      - title: a\n        duration: 10\n"))
	assert.Error(t, err, "unknown fields are rejected")

	lib, err := Load(strings.NewReader(""))
	require.NoError(t, err)
	assert.Len(t, lib.Names(), 4)
}
