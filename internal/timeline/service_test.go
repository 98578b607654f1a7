package timeline_test

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"datatime/internal/bodyfile"
	"datatime/internal/testutil"
	"datatime/internal/timeline"
)

func TestService_DistinctTimestampsBecomeSlots(t *testing.T) {
	h := newHarness(t, delimitedSettings(), testutil.UTCConverter(), 0)
	h.ingest(t, row("a.txt", "1000", "1000", "2000", ""))

	assert.Equal(t, []string{
		`Time Zone: "GMT"`,
		"1970-01-01 00:16:40,0,10,ma..,r/rrw-r--r--,0,0,12,a.txt",
		"1970-01-01 00:33:20,0,10,..c.,r/rrw-r--r--,0,0,12,a.txt",
	}, h.render(t))
}

func TestService_AllTimestampsEqualGiveOneSlot(t *testing.T) {
	h := newHarness(t, delimitedSettings(), testutil.UTCConverter(), 0)
	h.ingest(t, row("same", "7", "7", "7", "7"))

	assert.Equal(t, []string{
		`Time Zone: "GMT"`,
		"1970-01-01 00:00:07,0,10,macb,r/rrw-r--r--,0,0,12,same",
	}, h.render(t))
}

func TestService_NoTimestampsGiveUnknownRow(t *testing.T) {
	settings := delimitedSettings()
	dr, err := timeline.NewDateRange("2030-01-01", "2030-12-31")
	require.NoError(t, err)
	settings.DateRange = dr

	h := newHarness(t, settings, testutil.UTCConverter(), 0)
	h.ingest(t,
		row("ghost", "", "", "", ""),
		row("filtered", "100", "", "", ""),
		row("garbage", "soon", "-5", "", ""),
	)

	assert.Equal(t, []string{
		`Time Zone: "GMT"`,
		"Unknown,0,10,....,r/rrw-r--r--,0,0,12,ghost",
		"Unknown,0,10,....,r/rrw-r--r--,0,0,12,garbage",
	}, h.render(t))
}

func TestService_SentinelSortsFirstAndTiesKeepInputOrder(t *testing.T) {
	h := newHarness(t, delimitedSettings(), testutil.UTCConverter(), 0)
	h.ingest(t,
		row("late", "300", "", "", ""),
		row("first", "100", "", "", ""),
		row("ghost", "", "", "", ""),
		row("second", "100", "", "", ""),
		row("zero", "0", "", "", ""),
		row("third", "100", "", "", ""),
	)

	var names []string
	for _, l := range h.render(t)[1:] {
		cols := strings.Split(l, ",")
		names = append(names, cols[len(cols)-1])
	}
	assert.Equal(t, []string{"ghost", "zero", "first", "second", "third", "late"}, names)
}

func TestService_ColumnarSuppressesRepeatedDate(t *testing.T) {
	settings := timeline.DefaultSettings()
	h := newHarness(t, settings, testutil.UTCConverter(), 0)
	h.ingest(t,
		row("one", "5000", "", "", ""),
		row("two", "5000", "", "", ""),
		row("three", "6000", "", "", ""),
	)

	line := func(date, name string) string {
		return fmt.Sprintf("%24s %10s %s %12s %33s %33s %20s %s",
			date, "10", "m...", perms, "0", "0", "12", name)
	}
	assert.Equal(t, []string{
		`Time Zone: "GMT"`,
		line("Thu Jan 01 1970 01:23:20", "one"),
		line("", "two"),
		line("Thu Jan 01 1970 01:40:00", "three"),
	}, h.render(t))
}

func TestService_ColumnarFirstSentinelRowShowsDate(t *testing.T) {
	settings := timeline.DefaultSettings()
	settings.Options.HideTime = true
	settings.Options.HideSize = true
	h := newHarness(t, settings, testutil.UTCConverter(), 0)
	h.ingest(t, row("ghost", "", "", "", ""), row("ghost2", "", "", "", ""))

	out := h.render(t)
	require.Len(t, out, 3)
	assert.Equal(t, fmt.Sprintf("%15s .... %12s %33s %33s %20s ghost", "Unknown Date", perms, "0", "0", "12"), out[1])
	assert.True(t, strings.HasPrefix(out[2], strings.Repeat(" ", 16)+"...."), "second sentinel row should blank the date: %q", out[2])
}

func TestService_ColumnarTrimName(t *testing.T) {
	settings := timeline.DefaultSettings()
	settings.Options.TrimName = 4
	h := newHarness(t, settings, testutil.UTCConverter(), 0)
	h.ingest(t, row("/ëtc/passwd", "1", "", "", ""), row("ab", "2", "", "", ""))

	out := h.render(t)
	require.Len(t, out, 3)
	assert.True(t, strings.HasSuffix(out[1], " /ëtc"), "got %q", out[1])
	assert.True(t, strings.HasSuffix(out[2], " ab"), "got %q", out[2])
}

func TestService_DateRangeIsInclusive(t *testing.T) {
	settings := delimitedSettings()
	dr, err := timeline.NewDateRange("2024-01-01", "2024-01-31")
	require.NoError(t, err)
	settings.DateRange = dr

	epoch := func(y int, m time.Month, d, hh, mm, ss int) string {
		return fmt.Sprint(time.Date(y, m, d, hh, mm, ss, 0, time.UTC).Unix())
	}

	h := newHarness(t, settings, testutil.UTCConverter(), 0)
	h.ingest(t,
		row("before", epoch(2023, 12, 31, 23, 59, 59), "", "", ""),
		row("start", epoch(2024, 1, 1, 0, 0, 0), "", "", ""),
		row("end", epoch(2024, 1, 31, 23, 59, 59), "", "", ""),
		row("after", epoch(2024, 2, 1, 0, 0, 0), "", "", ""),
	)

	assert.Equal(t, []string{
		`Time Zone: "GMT"`,
		"2024-01-01 00:00:00,0,10,m...,r/rrw-r--r--,0,0,12,start",
		"2024-01-31 23:59:59,0,10,m...,r/rrw-r--r--,0,0,12,end",
	}, h.render(t))
}

func TestService_DateRangeUsesLocalDate(t *testing.T) {
	settings := delimitedSettings()
	dr, err := timeline.NewDateRange("2024-01-01", "")
	require.NoError(t, err)
	settings.DateRange = dr

	conv := &testutil.OffsetConverter{Name: "AEST-10", Offset: 10 * time.Hour}
	ts := time.Date(2023, 12, 31, 20, 0, 0, 0, time.UTC).Unix()

	h := newHarness(t, settings, conv, 0)
	h.ingest(t, row("local", fmt.Sprint(ts), "", "", ""))

	assert.Equal(t, []string{
		`Time Zone: "AEST-10"`,
		"2024-01-01 06:00:00,0,10,m...,r/rrw-r--r--,0,0,12,local",
	}, h.render(t))
}

func TestService_PartialRangeKeepsOnlyInRangeSlots(t *testing.T) {
	settings := delimitedSettings()
	dr, err := timeline.NewDateRange("1970-01-01", "1970-01-01")
	require.NoError(t, err)
	settings.DateRange = dr

	h := newHarness(t, settings, testutil.UTCConverter(), 0)
	h.ingest(t, row("f", "100", "", "200000", "100"))

	assert.Equal(t, []string{
		`Time Zone: "GMT"`,
		"1970-01-01 00:01:40,0,10,m..b,r/rrw-r--r--,0,0,12,f",
	}, h.render(t))
}

func TestService_DisabledKindsAreIgnored(t *testing.T) {
	settings := delimitedSettings()
	settings.Kinds = timeline.NewKindSet(timeline.Modified)

	h := newHarness(t, settings, testutil.UTCConverter(), 0)
	h.ingest(t,
		row("f", "100", "100", "200", ""),
		row("atime-only", "", "50", "", ""),
	)

	assert.Equal(t, []string{
		`Time Zone: "GMT"`,
		"Unknown,0,10,....,r/rrw-r--r--,0,0,12,atime-only",
		"1970-01-01 00:01:40,0,10,m...,r/rrw-r--r--,0,0,12,f",
	}, h.render(t))
}

func TestService_DelimitedOptions(t *testing.T) {
	settings := delimitedSettings()
	settings.Options.HideSize = true
	settings.Options.HideTime = true
	settings.Options.AllFields = true

	h := newHarness(t, settings, testutil.UTCConverter(), 0)
	extra := bodyfile.NewRow([]string{"d41d8", "x", "7", perms, "1", "2", "99", "", "86400", "", "", "sha1:aa", "note"})
	h.ingest(t, extra, row("ghost", "", "", "", ""))

	assert.Equal(t, []string{
		`Time Zone: "GMT"`,
		"Unknown,0,....,r/rrw-r--r--,0,0,12,ghost",
		"1970-01-02,d41d8,m...,r/rrw-r--r--,1,2,7,x,sha1:aa,note",
	}, h.render(t))
}

func TestService_BodyMode(t *testing.T) {
	settings := timeline.DefaultSettings()
	settings.Mode = timeline.ModeBody

	h := newHarness(t, settings, testutil.UTCConverter(), 0)
	h.ingest(t, row("a.txt", "1000", "1000", "2000", ""), row("ghost", "", "", "", ""))

	assert.Equal(t, []string{
		"0|ghost|12|r/rrw-r--r--|0|0|10||||",
		"0|a.txt|12|r/rrw-r--r--|0|0|10|1000|1000||",
		"0|a.txt|12|r/rrw-r--r--|0|0|10|||2000|",
	}, h.render(t))
}

func TestService_BodyOutputReplaysToSameTimeline(t *testing.T) {
	records := []timeline.Record{
		row("a.txt", "1000", "1000", "2000", ""),
		row("b.txt", "1500", "900", "1500", "2500"),
		row("ghost", "", "", "", ""),
	}

	bodySettings := timeline.DefaultSettings()
	bodySettings.Mode = timeline.ModeBody
	first := newHarness(t, bodySettings, testutil.UTCConverter(), 0)
	first.ingest(t, records...)
	body := strings.Join(first.render(t), "\n") + "\n"

	direct := newHarness(t, delimitedSettings(), testutil.UTCConverter(), 0)
	direct.ingest(t, records...)

	replayed := newHarness(t, delimitedSettings(), testutil.UTCConverter(), 0)
	rd, err := bodyfile.NewReader(strings.NewReader(body), "|", "")
	require.NoError(t, err)
	_, err = replayed.svc.Ingest("body", rd)
	require.NoError(t, err)

	assert.Equal(t, direct.render(t), replayed.render(t))
}

func TestService_IndexFullIsLoggedAndSkipped(t *testing.T) {
	h := newHarness(t, delimitedSettings(), testutil.UTCConverter(), 2)

	stats, err := h.svc.Ingest("test", source(
		row("a", "1", "2", "", ""),
		row("b", "3", "", "", ""),
		row("c", "", "", "", ""),
	))
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Rows)
	assert.Equal(t, 2, stats.Slots)

	errs := h.logger.Level("ERROR")
	require.Len(t, errs, 2)
	assert.Equal(t, 2, errs[0].Attr("size"))
	assert.Equal(t, int64(3), errs[0].Attr("key"))
	assert.Equal(t, "0|b|12|r/rrw-r--r--|0|0|10||3||", errs[0].Attr("record"))
	assert.Equal(t, timeline.Sentinel, errs[1].Attr("key"))

	assert.Len(t, h.render(t), 3)
}

func TestService_ConversionFailureDropsSlot(t *testing.T) {
	conv := &testutil.FailingConverter{Fail: map[int64]bool{1000: true}}
	h := newHarness(t, delimitedSettings(), conv, 0)
	h.ingest(t, row("f", "1000", "", "2000", ""))

	assert.Equal(t, []string{
		`Time Zone: "GMT"`,
		"1970-01-01 00:33:20,0,10,..c.,r/rrw-r--r--,0,0,12,f",
	}, h.render(t))
	assert.Len(t, h.logger.Level("WARN"), 1)
}

func TestService_ConversionFailureLogsSourceLine(t *testing.T) {
	conv := &testutil.FailingConverter{Fail: map[int64]bool{1000: true}}
	h := newHarness(t, delimitedSettings(), conv, 0)
	input := "0,ok,12,r/rrw-r--r--,0,0,10,,2000,,\n" +
		`0,"a, b",12,r/rrw-r--r--,0,0,10,,1000,,` + "\n"
	rd, err := bodyfile.NewReader(strings.NewReader(input), ",", `"`)
	require.NoError(t, err)

	_, err = h.svc.Ingest("test", rd)
	require.NoError(t, err)

	warns := h.logger.Level("WARN")
	require.Len(t, warns, 1)
	assert.Equal(t, 2, warns[0].Attr("line"))
	assert.Equal(t, "0,a, b,12,r/rrw-r--r--,0,0,10,,1000,,", warns[0].Attr("record"))
}

func TestService_IngestSkipsMalformedRows(t *testing.T) {
	h := newHarness(t, delimitedSettings(), testutil.UTCConverter(), 0)

	stats, err := h.svc.Ingest("test", source(
		fmt.Errorf("line 1: %w", timeline.ErrMalformedRow),
		row("ok", "1", "", "", ""),
	))
	require.NoError(t, err)
	assert.Equal(t, timeline.IngestStats{Rows: 1, Skipped: 1, Slots: 1}, stats)
	assert.Len(t, h.logger.Level("WARN"), 1)
}

func TestService_IngestReturnsReadErrors(t *testing.T) {
	h := newHarness(t, delimitedSettings(), testutil.UTCConverter(), 0)

	stats, err := h.svc.Ingest("host1.body", source(row("ok", "1", "", "", ""), errDisk))
	require.ErrorIs(t, err, errDisk)
	assert.Contains(t, err.Error(), "host1.body")
	assert.Equal(t, 1, stats.Rows)

	// What was read before the failure is still rendered.
	assert.Len(t, h.render(t), 2)
}

func TestService_SQLiteIndexMatchesMemoryIndex(t *testing.T) {
	records := []timeline.Record{
		row("a.txt", "1000", "1000", "2000", ""),
		row("ghost", "", "", "", ""),
		row("b.txt", "1000", "", "", "500"),
		row("c.txt", "2000", "", "", ""),
	}

	mem := newHarness(t, delimitedSettings(), testutil.UTCConverter(), 0)
	mem.ingest(t, records...)

	idx := testutil.NewTestSQLiteIndex(t, 0)
	svc := timeline.NewService(delimitedSettings(), testutil.UTCConverter(), idx, nil)
	items := make([]any, len(records))
	for i, r := range records {
		items[i] = r
	}
	_, err := svc.Ingest("test", source(items...))
	require.NoError(t, err)

	var buf strings.Builder
	_, err = svc.Render(&buf)
	require.NoError(t, err)

	assert.Equal(t, mem.render(t), lines(buf.String()))
}
