package extraction

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleLetter = `To
The Principal
ABC Engineering College
Date: 12-01-2024
Subject: Request for leave
Respected Sir,
I am Priya Sharma, Roll No: 21CS045, studying in II year CSE.
I am unable to attend college on 12-01-2024 due to high fever.
Kindly grant me leave for one day.
Thanking you,
Yours obediently,
Priya Sharma`

func newExtractor(t *testing.T) *Extractor {
	t.Helper()
	e, err := New(DefaultConfig())
	require.NoError(t, err)
	return e
}

func TestExtract_SampleLetter(t *testing.T) {
	rec := newExtractor(t).Extract(CleanText(sampleLetter))

	require.NotNil(t, rec.StudentName)
	assert.Equal(t, "Priya Sharma", *rec.StudentName)
	require.NotNil(t, rec.RollNumber)
	assert.Equal(t, "21CS045", *rec.RollNumber)
	require.NotNil(t, rec.Date)
	assert.Equal(t, "12-01-2024", *rec.Date)

	require.NotNil(t, rec.Reason)
	reason := *rec.Reason
	assert.True(t, strings.HasPrefix(reason, "Subject: Request for leave"), reason)
	assert.Contains(t, reason, "due to high fever")
	assert.NotContains(t, reason, "Yours")
	assert.NotContains(t, reason, "\n")
	assert.Equal(t, CleanText(sampleLetter), rec.RawText)
}

func TestExtract_Names(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"labelled", "Name: Rahul Verma\nRoll Number: 20EC112", "Rahul Verma"},
		{"labelled upper case with trailing label", "Student Name : ANIL KUMAR ROLL 19ME007", "ANIL KUMAR"},
		{"self introduction", "I, Meera Pillai, request leave for two days.", "Meera Pillai"},
		{"this is to inform", "This is to inform Arjun Das will be absent.", "Arjun Das"},
		{"before roll", "Submitted by Karthik Rao roll 18CS020", "Karthik Rao"},
		{"none", "please grant me leave tomorrow", ""},
	}
	e := newExtractor(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := e.Extract(tt.text)
			if tt.want == "" {
				assert.Nil(t, rec.StudentName)
				return
			}
			require.NotNil(t, rec.StudentName)
			assert.Equal(t, tt.want, *rec.StudentName)
		})
	}
}

func TestExtract_RollNumbers(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"roll no", "Roll No: 21CS045", "21CS045"},
		{"roll no with dot", "Roll No.: 21-CS-045", "21-CS-045"},
		{"roll number", "roll number 7", "7"},
		{"reg no", "Reg No 2021ME33", "2021ME33"},
		{"label without digits skipped", "Roll: pending\nID CS2021045", "CS2021045"},
		{"bare code", "submitted by student EE19042 today", "EE19042"},
		{"none", "no identifiers here", ""},
	}
	e := newExtractor(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := e.Extract(tt.text)
			if tt.want == "" {
				assert.Nil(t, rec.RollNumber)
				return
			}
			require.NotNil(t, rec.RollNumber)
			assert.Equal(t, tt.want, *rec.RollNumber)
		})
	}
}

func TestExtract_Dates(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"dashes", "absent on 12-01-2024", "12-01-2024"},
		{"slashes", "absent on 3/1/24", "3/1/24"},
		{"month name", "absent on 5 March 2024", "5 March 2024"},
		{"ordinal month name", "absent on 21st jan, 2024", "21st jan, 2024"},
		{"none", "absent tomorrow", ""},
	}
	e := newExtractor(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := e.Extract(tt.text)
			if tt.want == "" {
				assert.Nil(t, rec.Date)
				return
			}
			require.NotNil(t, rec.Date)
			assert.Equal(t, tt.want, *rec.Date)
		})
	}
}

func TestExtract_ReasonCappedAtFiveLines(t *testing.T) {
	text := strings.Join([]string{
		"I request leave for the following days",
		"line two of the reason text",
		"line three of the reason text",
		"line four of the reason text",
		"line five of the reason text",
		"line six must not appear",
	}, "\n")

	rec := newExtractor(t).Extract(text)
	assert.Contains(t, *rec.Reason, "line five")
	assert.NotContains(t, *rec.Reason, "line six")
}

func TestExtract_ReasonStopsAtSignOff(t *testing.T) {
	text := "I am absent due to a family function\nYours sincerely,\nthis is after the sign-off"

	rec := newExtractor(t).Extract(text)
	assert.Equal(t, "I am absent due to a family function", *rec.Reason)
}

func TestExtract_ReasonFallsBackToMiddle(t *testing.T) {
	rec := newExtractor(t).Extract("aaaa bbbb cccc dddd")
	require.NotNil(t, rec.Reason)
	assert.Equal(t, "bbbb cccc", *rec.Reason)
}

func TestExtract_ShortReasonFallsBack(t *testing.T) {
	// The reason block is one line under 20 characters.
	text := "header text line one\nleave please!\nYours truly, Ravi Kumar"

	rec := newExtractor(t).Extract(text)
	assert.NotEqual(t, "leave please!", *rec.Reason)
	assert.NotEmpty(t, *rec.Reason)
}

func TestExtract_EmptyText(t *testing.T) {
	rec := newExtractor(t).Extract("")
	require.NotNil(t, rec.Reason)
	assert.Empty(t, *rec.Reason)
	assert.Nil(t, rec.StudentName)
}

func TestNew_InvalidPatterns(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DatePatterns = []Pattern{{Name: "broken", Regex: "("}}
	_, err := New(cfg)
	assert.Error(t, err)

	cfg = DefaultConfig()
	cfg.RollPatterns = []Pattern{{Name: "no_group", Regex: `\d+`}}
	_, err = New(cfg)
	assert.ErrorContains(t, err, "capture group")
}

func TestNew_FillsDefaults(t *testing.T) {
	e, err := New(Config{})
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().MaxReasonLines, e.cfg.MaxReasonLines)
	assert.Len(t, e.name, len(DefaultNamePatterns()))
}
