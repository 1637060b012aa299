package http

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"artis/internal/core"
	applog "artis/internal/log"
	"artis/internal/refdata"
)

// User-facing validation messages (rendered inline per section).
const (
	msgMissingFields       = "Lütfen tüm alanları doldurun"
	msgNonPositiveBaseline = "İlk değer sıfırdan büyük olmalıdır"
	msgManualEntry         = "Bu dönem için endeks değeri bulunamadı, el ile giriniz"
)

// Visual states of a result block.
const (
	stateHidden   = "hidden"
	stateError    = "error"
	stateIncrease = "increase"
	stateDecrease = "decrease"
	stateNoChange = "no-change"
)

type sectionView struct {
	Key      string
	Title    string
	State    string
	Label    string
	Percent  string
	Weighted string
	TrendTag string
	Message  string
}

type totalView struct {
	State    string
	Total    string
	TrendTag string
	Shown    bool
}

// handleCalculate computes all sections and the total for one form
// submission and renders the result fragments.
func (s *Server) handleCalculate(w http.ResponseWriter, r *http.Request) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}
	if resp := ParseFormOrFail(r); resp != nil {
		resp.Write(w)
		return
	}

	inputs := parseSectionInputs(r.Form, s.svc.Sections())
	sub := s.svc.Run(inputs)

	logger := applog.FromContext(r.Context())
	id, err := s.svc.Record(r.Context(), sub)
	if err != nil {
		// The computation itself succeeded; log the audit failure and render
		// the results anyway.
		logger.ErrorContext(r.Context(), "Failed to record submission",
			applog.NewFields().WithOperation(applog.OpRecord).WithError(err).ToSlice()...)
	} else if id > 0 {
		s.recentCache.Delete(recentCacheKey)
		logger.InfoContext(r.Context(), "Submission recorded",
			applog.NewFields().WithOperation(applog.OpRecord).
				WithSubmission(id, sub.Total.Total, string(sub.Total.Trend), sub.Total.Sections).
				ToSlice()...)
	}

	if s.templates == nil {
		InternalServerError("Sonuç görüntülenemedi").Write(w)
		return
	}

	data := struct {
		Sections []sectionView
		Total    totalView
	}{
		Sections: make([]sectionView, 0, len(sub.Results)),
		Total:    buildTotalView(sub.Total),
	}
	for _, res := range sub.Results {
		data.Sections = append(data.Sections, buildSectionView(res))
	}

	resp := NewHTMXResponse().Header("Content-Type", "text/html; charset=utf-8")
	if sub.Total.Valid {
		resp.TriggerCalculationDone(id, sub.Total.Total)
	}
	resp.Write(w)

	if err := s.templates.ExecuteTemplate(w, "results.html", data); err != nil {
		slog.ErrorContext(r.Context(), "Results template execution failed", "error", err, "template", "results.html")
	}
}

// handleReferenceValue resolves the reference index value for a period and
// renders the auto-fill fragment. Absent periods get a manual-entry flag.
func (s *Server) handleReferenceValue(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	year, month := parseYearMonth(r)
	if year == 0 || month == 0 {
		_, _ = w.Write([]byte(`<span class="ref-value manual" data-manual="true">` + msgManualEntry + `</span>`))
		return
	}

	res, err := s.getReferenceValue(r.Context(), year, month)
	if err != nil {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Reference lookup error",
			applog.NewFields().WithOperation(applog.OpLookup).WithPeriod(year, month).WithError(err).ToSlice()...)
		_, _ = w.Write([]byte(`<span class="ref-value manual" data-manual="true">` + msgManualEntry + `</span>`))
		return
	}

	if !res.Found {
		_, _ = w.Write([]byte(`<span class="ref-value manual" data-manual="true">` + msgManualEntry + `</span>`))
		return
	}

	formatted := formatChange(res.Value)
	_, _ = w.Write([]byte(`<span class="ref-value" data-value="` +
		strconv.FormatFloat(res.Value, 'f', 2, 64) + `">` + formatted + `</span>`))
}

const recentCacheKey = "recent"

// handleRecentSubmissions renders the submission history partial.
func (s *Server) handleRecentSubmissions(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	if s.lister == nil || s.templates == nil {
		_, _ = w.Write([]byte(`<section id="recent-submissions" class="recent"></section>`))
		return
	}

	subs, err := s.getRecentSubmissions(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "Recent submissions error", "error", err)
		_, _ = w.Write([]byte(`<section id="recent-submissions" class="recent"><div class="placeholder">Geçmiş yüklenemedi</div></section>`))
		return
	}

	type row struct {
		When  string
		Total string
		Trend string
	}
	data := struct{ Rows []row }{}
	for _, sub := range subs {
		data.Rows = append(data.Rows, row{
			When:  sub.CreatedAt.Format("02.01.2006 15:04"),
			Total: formatMagnitude(sub.Total.Total),
			Trend: trendTag(sub.Total.Trend),
		})
	}

	if err := s.templates.ExecuteTemplate(w, "recent.html", data); err != nil {
		slog.ErrorContext(r.Context(), "Recent template execution failed", "error", err, "template", "recent.html")
	}
}

func (s *Server) getReferenceValue(ctx context.Context, year, month int) (lookupResult, error) {
	key := refdata.PeriodKey(year, month)
	if cached, found := s.lookupCache.Get(key); found {
		slog.DebugContext(ctx, "Reference cache hit", "period", key)
		return cached, nil
	}

	if s.lookup == nil {
		return lookupResult{}, nil
	}

	cctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	v, ok, err := s.lookup.Value(cctx, year, month)
	if err != nil {
		return lookupResult{}, fmt.Errorf("reference lookup (period=%s): %w", key, err)
	}

	res := lookupResult{Value: v, Found: ok}
	s.lookupCache.Set(key, res)
	return res, nil
}

func (s *Server) getRecentSubmissions(ctx context.Context) ([]core.Submission, error) {
	if cached, found := s.recentCache.Get(recentCacheKey); found {
		return cached, nil
	}

	cctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	subs, err := s.lister.ListRecentSubmissions(cctx, 10)
	if err != nil {
		return nil, fmt.Errorf("list recent submissions: %w", err)
	}

	s.recentCache.Set(recentCacheKey, subs)
	return subs, nil
}

// buildSectionView maps a calculation result onto its display block.
// The silent-invalid state (untouched form) renders as hidden; the two
// validation errors render their message; valid results show the magnitude
// of the change with the trend as framing.
func buildSectionView(res core.SectionResult) sectionView {
	view := sectionView{
		Key:   res.Section.Key,
		Title: res.Section.ValueLabel,
	}

	if !res.Valid {
		if res.Err == nil {
			view.State = stateHidden
			return view
		}
		view.State = stateError
		view.Message = validationMessage(res.Err)
		return view
	}

	view.State = trendState(res.Trend)
	view.Label = res.Label
	view.Percent = formatMagnitude(res.PercentChange)
	view.Weighted = formatMagnitude(res.WeightedChange)
	view.TrendTag = trendTag(res.Trend)
	return view
}

func buildTotalView(total core.TotalResult) totalView {
	if !total.Valid {
		return totalView{State: stateHidden}
	}
	return totalView{
		State:    trendState(total.Trend),
		Total:    formatMagnitude(total.Total),
		TrendTag: trendTag(total.Trend),
		Shown:    true,
	}
}

func validationMessage(err error) string {
	switch {
	case errors.Is(err, core.ErrMissingFields):
		return msgMissingFields
	case errors.Is(err, core.ErrNonPositiveBaseline):
		return msgNonPositiveBaseline
	default:
		return msgMissingFields
	}
}

func trendState(t core.Trend) string {
	switch t {
	case core.TrendIncrease:
		return stateIncrease
	case core.TrendDecrease:
		return stateDecrease
	default:
		return stateNoChange
	}
}

// trendTag is the Turkish framing text shown next to the magnitude.
func trendTag(t core.Trend) string {
	switch t {
	case core.TrendIncrease:
		return "Artış"
	case core.TrendDecrease:
		return "Azalış"
	default:
		return "Değişim Yok"
	}
}
