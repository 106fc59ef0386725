package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/natefinch/atomic"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/tinytelemetry/olam/internal/kvstore"
	"github.com/tinytelemetry/olam/internal/model"
	"github.com/tinytelemetry/olam/internal/query"
	"github.com/tinytelemetry/olam/internal/snapshot"
)

// lastFilterKey holds the filter of the last batches command.
const lastFilterKey = "olam_last_filter_v1"

func (e *env) print(v any) error {
	enc := json.NewEncoder(e.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// filterFlags are the batch selectors shared by batches and export.
type filterFlags struct {
	ids, lots, devices, operators []string
	from, to                      string
	fmin, fmax                    float64
	limit                         int
}

func addFilterFlags(fs *pflag.FlagSet) *filterFlags {
	ff := &filterFlags{}
	fs.StringSliceVar(&ff.ids, "ids", nil, "batch ids (overrides every other selector)")
	fs.StringSliceVar(&ff.lots, "lots", nil, "lot numbers (overrides devices, operators, dates and frequencies)")
	fs.StringSliceVar(&ff.devices, "devices", nil, "device ids")
	fs.StringSliceVar(&ff.operators, "operators", nil, "operator ids")
	fs.StringVar(&ff.from, "from", "", "start date")
	fs.StringVar(&ff.to, "to", "", "end date")
	fs.Float64Var(&ff.fmin, "fmin", 0, "minimum target frequency")
	fs.Float64Var(&ff.fmax, "fmax", 0, "maximum target frequency")
	fs.IntVar(&ff.limit, "limit", 0, "maximum number of batches")
	return ff
}

// filter builds the model filter. Frequency bounds are set only when given,
// so an explicit 0 is kept.
func (ff *filterFlags) filter(fs *pflag.FlagSet) model.Filter {
	f := model.Filter{
		BatchIDs:    ff.ids,
		LotNumbers:  ff.lots,
		DeviceIDs:   ff.devices,
		OperatorIDs: ff.operators,
		StartDate:   ff.from,
		EndDate:     ff.to,
		Limit:       ff.limit,
	}
	if fs.Changed("fmin") {
		f.TargetFMin = model.Float(ff.fmin)
	}
	if fs.Changed("fmax") {
		f.TargetFMax = model.Float(ff.fmax)
	}
	return f
}

func saveFilter(s kvstore.Storage, f model.Filter) error {
	data, err := json.Marshal(f)
	if err != nil {
		return err
	}
	return s.Set(lastFilterKey, string(data))
}

func loadFilter(s kvstore.Storage) (model.Filter, bool, error) {
	var f model.Filter
	raw, ok, err := s.Get(lastFilterKey)
	if err != nil || !ok {
		return f, false, err
	}
	if err := json.Unmarshal([]byte(raw), &f); err != nil {
		return f, false, fmt.Errorf("decode last filter: %w", err)
	}
	return f, true, nil
}

type batchesOutput struct {
	Mode    string              `json:"mode"`
	Filter  model.Filter        `json:"filter"`
	Batches model.BatchSummary  `json:"batches"`
	Rounds  model.RoundsByBatch `json:"rounds,omitempty"`
}

func (e *env) batchesOutput(withRounds bool) batchesOutput {
	snap := e.stores.Data.Snapshot()
	out := batchesOutput{Batches: snap.BatchData}
	if snap.CurrentFilter != nil {
		out.Filter = *snap.CurrentFilter
		out.Mode = query.ModeOf(out.Filter).String()
	}
	if withRounds {
		out.Rounds = snap.Rounds
	}
	return out
}

func runDashboard(ctx context.Context, e *env, _ []string) error {
	e.stores.Dashboard.FetchDashboardData(ctx)
	snap := e.stores.Dashboard.Snapshot()
	if err := storeErr(snap.Err); err != nil {
		return err
	}
	return e.print(map[string]any{
		"overview":          snap.Overview,
		"varianceTrend":     snap.VarianceTrend,
		"devicePerformance": snap.DevicePerformance,
	})
}

func runBatches(ctx context.Context, e *env, args []string) error {
	fs := pflag.NewFlagSet("batches", pflag.ContinueOnError)
	ff := addFilterFlags(fs)
	withRounds := fs.Bool("rounds", false, "also fetch the rounds of every batch")
	if err := fs.Parse(args); err != nil {
		return err
	}
	f := ff.filter(fs)

	data := e.stores.Data
	data.FetchBatchData(ctx, f)
	if err := storeErr(data.Err()); err != nil {
		return err
	}
	if *withRounds {
		data.FetchBatchRounds(ctx, data.BatchData().BatchIDs)
		if err := storeErr(data.Err()); err != nil {
			return err
		}
	}
	if err := saveFilter(e.storage, f); err != nil {
		e.logger.Warn("remember filter", zap.Error(err))
	}
	return e.print(e.batchesOutput(*withRounds))
}

func runReplay(ctx context.Context, e *env, _ []string) error {
	f, ok, err := loadFilter(e.storage)
	if err != nil {
		return err
	}
	if ok {
		e.stores.Data.SaveCurrentFilter(f)
	}
	e.stores.Data.ReloadLastData(ctx)
	if err := storeErr(e.stores.Data.Err()); err != nil {
		return err
	}
	return e.print(e.batchesOutput(true))
}

func runRounds(ctx context.Context, e *env, args []string) error {
	var ids []string
	for _, a := range args {
		for _, id := range strings.Split(a, ",") {
			if id = strings.TrimSpace(id); id != "" {
				ids = append(ids, id)
			}
		}
	}
	if len(ids) == 0 {
		return errors.New("rounds: need at least one batch id")
	}
	e.stores.Data.FetchBatchRounds(ctx, ids)
	if err := storeErr(e.stores.Data.Err()); err != nil {
		return err
	}
	return e.print(e.stores.Data.Rounds())
}

func runLookups(ctx context.Context, e *env, _ []string) error {
	e.stores.Data.InitialLoad(ctx)
	snap := e.stores.Data.Snapshot()
	if err := storeErr(snap.Err); err != nil {
		return err
	}
	return e.print(map[string]any{
		"totalBatches": snap.TotalBatches,
		"devices":      snap.DeviceOptions,
		"operators":    snap.OperatorOptions,
	})
}

func runAnalysis(ctx context.Context, e *env, args []string) error {
	if len(args) == 0 {
		return errors.New("analysis: want initial-variance, repair-effect, frequency-range or impact")
	}
	kind := args[0]
	fs := pflag.NewFlagSet("analysis "+kind, pflag.ContinueOnError)
	batchID := fs.String("batch", "", "batch id")
	roundCount := fs.Int("round-count", model.DefaultRoundCount, "rounds to compare")
	deviceID := fs.String("device", "", "device id")
	method := fs.String("method", "", "repair method")
	ranges := fs.StringSlice("range", nil, "frequency range min:max, repeatable")
	from := fs.String("from", "", "start date")
	to := fs.String("to", "", "end date")
	if err := fs.Parse(args[1:]); err != nil {
		return err
	}

	data := e.stores.Data
	var result func() any
	switch kind {
	case "initial-variance":
		if *batchID == "" {
			return errors.New("initial-variance: --batch is required")
		}
		data.FetchInitialVariance(ctx, *batchID, *roundCount)
		result = func() any { return data.Snapshot().InitialVariance }
	case "repair-effect":
		data.FetchRepairEffect(ctx, *deviceID, *method)
		result = func() any { return data.Snapshot().RepairEffect }
	case "frequency-range":
		rs, err := parseRanges(*ranges)
		if err != nil {
			return err
		}
		data.FetchFrequencyRangeAnalysis(ctx, *deviceID, rs)
		result = func() any { return data.Snapshot().FrequencyRange }
	case "impact":
		data.FetchOperatorDeviceImpact(ctx, *from, *to)
		result = func() any { return data.Snapshot().OperatorDeviceImpact }
	default:
		return fmt.Errorf("analysis: unknown kind %q", kind)
	}
	if err := storeErr(data.Err()); err != nil {
		return err
	}
	return e.print(result())
}

func parseRanges(specs []string) ([]model.FrequencyRange, error) {
	out := make([]model.FrequencyRange, 0, len(specs))
	for _, s := range specs {
		lo, hi, ok := strings.Cut(s, ":")
		if !ok {
			return nil, fmt.Errorf("range %q: want min:max", s)
		}
		minF, err := strconv.ParseFloat(lo, 64)
		if err != nil {
			return nil, fmt.Errorf("range %q: %w", s, err)
		}
		maxF, err := strconv.ParseFloat(hi, 64)
		if err != nil {
			return nil, fmt.Errorf("range %q: %w", s, err)
		}
		if maxF < minF {
			return nil, fmt.Errorf("range %q: max below min", s)
		}
		out = append(out, model.FrequencyRange{Min: minF, Max: maxF})
	}
	return out, nil
}

func runExport(ctx context.Context, e *env, args []string) error {
	fs := pflag.NewFlagSet("export", pflag.ContinueOnError)
	ff := addFilterFlags(fs)
	format := fs.String("format", "duckdb", "duckdb or json")
	outPath := fs.String("out", "", "JSON output file (json format)")
	dbPath := fs.String("db", e.cfg.SnapshotPath, "snapshot database (duckdb format)")
	list := fs.Bool("list", false, "list stored snapshots")
	show := fs.Int64("show", 0, "print a stored snapshot by id")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *list || *show > 0 {
		snaps, err := snapshot.Open(ctx, *dbPath)
		if err != nil {
			return err
		}
		defer snaps.Close()
		if *list {
			infos, err := snaps.Exports(ctx)
			if err != nil {
				return err
			}
			return e.print(infos)
		}
		return showSnapshot(ctx, e, snaps, *show)
	}

	f := ff.filter(fs)
	data := e.stores.Data
	data.FetchBatchData(ctx, f)
	if err := storeErr(data.Err()); err != nil {
		return err
	}
	data.FetchBatchRounds(ctx, data.BatchData().BatchIDs)
	if err := storeErr(data.Err()); err != nil {
		return err
	}
	exp := snapshot.Export{
		CapturedAt: time.Now().UTC(),
		BaseURL:    e.client.BaseURL(),
		Filter:     f,
		Summary:    data.BatchData(),
		Rounds:     data.Rounds(),
	}

	switch *format {
	case "duckdb":
		snaps, err := snapshot.Open(ctx, *dbPath)
		if err != nil {
			return err
		}
		defer snaps.Close()
		id, err := snaps.Write(ctx, exp)
		if err != nil {
			return err
		}
		e.logger.Info("snapshot written", zap.Int64("id", id), zap.String("path", *dbPath), zap.Int("batches", exp.Summary.Len()))
		return e.print(map[string]any{"id": id, "path": *dbPath, "batches": exp.Summary.Len()})
	case "json":
		if *outPath == "" {
			return errors.New("export: --out is required for json")
		}
		body, err := json.MarshalIndent(exp, "", "  ")
		if err != nil {
			return err
		}
		if err := atomic.WriteFile(*outPath, bytes.NewReader(body)); err != nil {
			return fmt.Errorf("export: write %s: %w", *outPath, err)
		}
		return e.print(map[string]any{"path": *outPath, "batches": exp.Summary.Len()})
	default:
		return fmt.Errorf("export: unknown format %q", *format)
	}
}

func showSnapshot(ctx context.Context, e *env, snaps *snapshot.Store, id int64) error {
	summary, err := snaps.Summary(ctx, id)
	if err != nil {
		return err
	}
	rounds, err := snaps.Rounds(ctx, id)
	if err != nil {
		return err
	}
	return e.print(map[string]any{"id": id, "batches": summary, "rounds": rounds})
}

func runChat(ctx context.Context, e *env, args []string) error {
	text := strings.TrimSpace(strings.Join(args, " "))
	if text == "" {
		return errors.New("chat: empty message")
	}
	ai := e.stores.AI
	ai.LoadSettings()
	if !ai.CanSend() {
		return errors.New("chat: set a model and an api key first (olam settings --model M --key K)")
	}
	ai.Send(ctx, text)
	if err := storeErr(ai.Err()); err != nil {
		return err
	}
	msgs := ai.Messages()
	return e.print(msgs[len(msgs)-1])
}

func runSettings(_ context.Context, e *env, args []string) error {
	fs := pflag.NewFlagSet("settings", pflag.ContinueOnError)
	provider := fs.String("provider", "", "provider id: openai, deepseek, qwen or custom")
	baseURL := fs.String("provider-url", "", "provider base URL (custom providers)")
	modelName := fs.String("model", "", "model name")
	apiKey := fs.String("key", "", "api key")
	maxRows := fs.Int("max-rows", 0, "rows the assistant may read")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ai := e.stores.AI
	ai.LoadSettings()
	s := ai.Settings()
	if fs.NFlag() > 0 {
		if fs.Changed("provider") {
			s.ProviderID = model.ProviderID(strings.ToLower(*provider))
		}
		if fs.Changed("provider-url") {
			s.BaseURL = *baseURL
		}
		if fs.Changed("model") {
			s.Model = *modelName
		}
		if fs.Changed("key") {
			s.APIKey = *apiKey
		}
		if fs.Changed("max-rows") {
			if *maxRows <= 0 {
				return errors.New("settings: --max-rows must be positive")
			}
			s.MaxRows = *maxRows
		}
		ai.SetSettings(s)
		if err := ai.SaveSettings(); err != nil {
			return err
		}
	}

	if s.APIKey != "" {
		s.APIKey = maskKey(s.APIKey)
	}
	return e.print(s)
}

func maskKey(k string) string {
	if len(k) <= 4 {
		return "****"
	}
	return strings.Repeat("*", len(k)-4) + k[len(k)-4:]
}
