package attachments

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpalmer79/quirk-trade-appraisal-VolkswagenMA/internal/leads"
)

const mb = 1024 * 1024

func sized(name string, n int) Candidate {
	return Candidate{Filename: name, Type: "image/jpeg", Data: bytes.Repeat([]byte{'x'}, n)}
}

func TestAdmitSkipsOversizeFile(t *testing.T) {
	limits := Limits{MaxCount: 10, MaxEachBytes: 7 * mb, MaxTotalBytes: 20 * mb}
	admitted, omitted := Admit([]Candidate{
		sized("file1.jpg", 5*mb),
		sized("file2.jpg", 3*mb),
		sized("file3.jpg", 15*mb),
	}, limits)

	require.Len(t, admitted, 2)
	assert.Equal(t, "file1.jpg", admitted[0].Filename)
	assert.Equal(t, "file2.jpg", admitted[1].Filename)
	require.Len(t, omitted, 1)
	assert.Equal(t, "file3.jpg", omitted[0].Filename)
	assert.Equal(t, ReasonTooLarge, omitted[0].Reason)
}

func TestAdmitIsFirstFitInInputOrder(t *testing.T) {
	limits := Limits{MaxCount: 10, MaxEachBytes: 10, MaxTotalBytes: 10}
	admitted, omitted := Admit([]Candidate{
		sized("a", 6),
		sized("b", 6),
		sized("c", 4),
	}, limits)

	require.Len(t, admitted, 2)
	assert.Equal(t, "a", admitted[0].Filename)
	assert.Equal(t, "c", admitted[1].Filename)
	require.Len(t, omitted, 1)
	assert.Equal(t, ReasonBudget, omitted[0].Reason)
}

func TestAdmitCountAndFailures(t *testing.T) {
	limits := Limits{MaxCount: 2}
	admitted, omitted := Admit([]Candidate{
		{Filename: "broken", Err: errors.New("boom")},
		sized("ok", 3),
		sized("late", 3),
	}, limits)

	require.Len(t, admitted, 1)
	assert.Equal(t, "ok", admitted[0].Filename)
	require.Len(t, omitted, 2)
	assert.Equal(t, ReasonFetch, omitted[0].Reason)
	assert.ErrorContains(t, omitted[0], "boom")
	assert.Equal(t, ReasonCountLimit, omitted[1].Reason)
}

func TestAdmitEncodesPayload(t *testing.T) {
	admitted, _ := Admit([]Candidate{{Filename: "note.txt", Data: []byte("hello")}}, Limits{})
	require.Len(t, admitted, 1)

	p := admitted[0]
	assert.Equal(t, DefaultType, p.Type)
	assert.Equal(t, "attachment", p.Disposition)
	assert.Equal(t, "aGVsbG8=", p.Content)
	assert.EqualValues(t, 5, p.Size)

	raw, err := p.Decode()
	require.NoError(t, err)
	assert.Equal(t, "hello", string(raw))
}

func TestFromUploads(t *testing.T) {
	admitted, omitted := FromUploads([]leads.FileUpload{
		{Field: "photos", Filename: "front.jpg", ContentType: "image/jpeg", Data: []byte("front"), Size: 5},
		{Field: "photos", Filename: "rear.png", ContentType: "image/png", Data: []byte("rear-photo"), Size: 10},
	}, Limits{MaxCount: 10, MaxEachBytes: 8})

	require.Len(t, admitted, 1)
	assert.Equal(t, "image/jpeg", admitted[0].Type)
	require.Len(t, omitted, 1)
	assert.Equal(t, "rear.png", omitted[0].Filename)
}
