package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"go.uber.org/zap"

	"github.com/erazemk/handreceipt/internal/calibration"
	"github.com/erazemk/handreceipt/internal/custody"
	"github.com/erazemk/handreceipt/internal/layout"
	"github.com/erazemk/handreceipt/internal/model"
	"github.com/erazemk/handreceipt/internal/receipt"
	"github.com/erazemk/handreceipt/internal/render"
	"github.com/erazemk/handreceipt/internal/store"
	"github.com/erazemk/handreceipt/internal/tabular"
)

type command func(ctx context.Context, a *app, args []string) error

var commands = map[string]command{
	"init":            cmdInit,
	"add":             cmdAdd,
	"import":          cmdImport,
	"export":          cmdExport,
	"list":            cmdList,
	"validate-issue":  cmdValidateIssue,
	"issue":           cmdIssue,
	"validate-return": cmdValidateReturn,
	"return":          cmdReturn,
	"custodians":      cmdCustodians,
	"custodian-meta":  cmdCustodianMeta,
	"history":         cmdHistory,
	"delete":          cmdDelete,
	"restore":         cmdRestore,
	"purge":           cmdPurge,
	"bin":             cmdBin,
	"generate":        cmdGenerate,
	"receipts":        cmdReceipts,
	"calibration":     cmdCalibration,
}

func (a *app) flags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	return fs
}

func (a *app) table() *tabwriter.Writer {
	return tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
}

// serialInput collects serials from arguments, -serials and stdin.
type serialInput struct {
	list  string
	stdin bool
}

func addSerialFlags(fs *flag.FlagSet) *serialInput {
	in := &serialInput{}
	fs.StringVar(&in.list, "serials", "", "comma or newline separated serials")
	fs.BoolVar(&in.stdin, "stdin", false, "also read serials from standard input")
	return in
}

func (in *serialInput) read(a *app, fs *flag.FlagSet) ([]string, error) {
	for _, arg := range fs.Args() {
		if strings.HasPrefix(arg, "-") {
			return nil, fmt.Errorf("%w: flag %s must come before serials", custody.ErrInvalidInput, arg)
		}
	}
	parts := append([]string{in.list}, fs.Args()...)
	if in.stdin {
		data, err := io.ReadAll(a.stdin)
		if err != nil {
			return nil, fmt.Errorf("reading stdin: %w", err)
		}
		parts = append(parts, string(data))
	}
	serials := custody.ParseSerials(strings.Join(parts, "\n"))
	if len(serials) == 0 {
		return nil, fmt.Errorf("%w: no serials given", custody.ErrInvalidInput)
	}
	return serials, nil
}

func (a *app) printBatch(verb string, res custody.BatchResult) {
	fmt.Fprintf(a.stdout, "%s: %d\n", verb, len(res.Succeeded()))
	rejected := res.Rejected()
	if len(rejected) == 0 {
		return
	}
	fmt.Fprintf(a.stdout, "rejected: %d\n", len(rejected))
	for _, o := range rejected {
		fmt.Fprintf(a.stdout, "  %s\t%s\n", o.Serial, o.Reason())
	}
}

func (a *app) printItems(items []model.Item) error {
	w := a.table()
	fmt.Fprintln(w, "MODEL\tCATEGORY\tBOX\tSERIAL\tSTATUS\tCUSTODIAN\tUPDATED")
	for _, it := range items {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			it.Model, it.Category, it.Box, it.Serial, model.StatusLabel(it.Status), it.CustodianName,
			it.UpdatedAt.Local().Format("2006-01-02 15:04"))
	}
	return w.Flush()
}

func cmdInit(ctx context.Context, a *app, args []string) error {
	if err := a.flags("init").Parse(args); err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "Database ready: %s\n", a.cfg.DB.Path)
	fmt.Fprintf(a.stdout, "Calibration: %d rows per page, font %s %gpt\n",
		a.calibration.Get().RowsPerPage, a.calibration.Get().FontName, a.calibration.Get().FontSize)
	return nil
}

func cmdAdd(ctx context.Context, a *app, args []string) error {
	fs := a.flags("add")
	var f model.ItemFields
	fs.StringVar(&f.Model, "model", "", "equipment model")
	fs.StringVar(&f.Category, "category", "", "category")
	fs.StringVar(&f.Box, "box", "", "box number")
	fs.StringVar(&f.Serial, "serial", "", "serial number")
	fs.StringVar(&f.AssetTag, "asset", "", "asset tag")
	if err := fs.Parse(args); err != nil {
		return err
	}

	item, err := a.custody.AddItem(ctx, f)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "added %s %s\n", item.Model, item.Serial)
	return nil
}

func cmdImport(ctx context.Context, a *app, args []string) error {
	fs := a.flags("import")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("%w: import takes one file", custody.ErrInvalidInput)
	}
	path := fs.Arg(0)

	format, err := tabular.FormatFor(path)
	if err != nil {
		return err
	}
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening import file: %w", err)
	}
	defer f.Close()

	var sheet tabular.Sheet
	switch format {
	case tabular.FormatXLSX:
		sheet, err = tabular.ReadXLSX(f)
	default:
		sheet, err = tabular.ReadCSV(f)
	}
	if err != nil {
		return err
	}

	res, err := a.custody.Import(ctx, sheet.Rows)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "created: %d\nupdated: %d\nrevived: %d\nskipped: %d\n",
		len(res.Created), len(res.Updated), len(res.Revived), sheet.Skipped+len(res.Rejected))
	return nil
}

func cmdExport(ctx context.Context, a *app, args []string) error {
	fs := a.flags("export")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("%w: export takes one file", custody.ErrInvalidInput)
	}
	path := fs.Arg(0)

	format, err := tabular.FormatFor(path)
	if err != nil {
		return err
	}
	items, err := store.ListItems(ctx, a.db, "")
	if err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating export file: %w", err)
	}
	defer f.Close()

	switch format {
	case tabular.FormatXLSX:
		err = tabular.WriteXLSX(f, items)
	default:
		err = tabular.WriteCSV(f, items)
	}
	if err != nil {
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("writing export file: %w", err)
	}
	fmt.Fprintf(a.stdout, "exported %d items to %s\n", len(items), path)
	return nil
}

func cmdList(ctx context.Context, a *app, args []string) error {
	fs := a.flags("list")
	status := fs.String("status", "", "on_hand, issued or deleted (default: live items)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	switch *status {
	case "", model.StatusOnHand, model.StatusIssued, model.StatusDeleted:
	default:
		return fmt.Errorf("%w: unknown status %q", custody.ErrInvalidInput, *status)
	}

	items, err := store.ListItems(ctx, a.db, *status)
	if err != nil {
		return err
	}
	return a.printItems(items)
}

func cmdValidateIssue(ctx context.Context, a *app, args []string) error {
	fs := a.flags("validate-issue")
	in := addSerialFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	serials, err := in.read(a, fs)
	if err != nil {
		return err
	}

	av, err := a.custody.ValidateOnHand(ctx, serials)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "available: %d\n", len(av.Available))
	for _, it := range av.Available {
		fmt.Fprintf(a.stdout, "  %s\t%s\n", it.Serial, it.Model)
	}
	if len(av.NotFound) > 0 {
		fmt.Fprintf(a.stdout, "not found: %s\n", strings.Join(av.NotFound, ", "))
	}
	if len(av.AlreadyIssued) > 0 {
		fmt.Fprintf(a.stdout, "already issued: %s\n", strings.Join(av.AlreadyIssued, ", "))
	}
	return nil
}

func cmdIssue(ctx context.Context, a *app, args []string) error {
	fs := a.flags("issue")
	to := fs.String("to", "", "custodian name")
	from := fs.String("from", "", "issued by")
	contact := fs.String("contact", "", "custodian contact")
	in := addSerialFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	serials, err := in.read(a, fs)
	if err != nil {
		return err
	}

	res, err := a.custody.Issue(ctx, serials, *to, *from, *contact)
	a.printBatch("issued", res)
	return err
}

func cmdValidateReturn(ctx context.Context, a *app, args []string) error {
	fs := a.flags("validate-return")
	in := addSerialFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	serials, err := in.read(a, fs)
	if err != nil {
		return err
	}

	iss, err := a.custody.ValidateIssued(ctx, serials)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "issued: %d\n", len(iss.Issued))
	for _, it := range iss.Issued {
		fmt.Fprintf(a.stdout, "  %s\t%s\t%s\n", it.Serial, it.Model, it.CustodianName)
	}
	if len(iss.NotIssued) > 0 {
		fmt.Fprintf(a.stdout, "not issued: %s\n", strings.Join(iss.NotIssued, ", "))
	}
	return nil
}

func cmdReturn(ctx context.Context, a *app, args []string) error {
	fs := a.flags("return")
	in := addSerialFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	serials, err := in.read(a, fs)
	if err != nil {
		return err
	}

	res, err := a.custody.Return(ctx, serials)
	a.printBatch("returned", res)
	return err
}

func cmdCustodians(ctx context.Context, a *app, args []string) error {
	if err := a.flags("custodians").Parse(args); err != nil {
		return err
	}
	list, err := a.custody.Custodians(ctx)
	if err != nil {
		return err
	}

	w := a.table()
	fmt.Fprintln(w, "CUSTODIAN\tITEMS\tISSUED BY\tCONTACT")
	for _, c := range list {
		fmt.Fprintf(w, "%s\t%d\t%s\t%s\n", c.Name, c.IssuedCount, c.IssuedBy, c.Contact)
	}
	return w.Flush()
}

func cmdCustodianMeta(ctx context.Context, a *app, args []string) error {
	fs := a.flags("custodian-meta")
	to := fs.String("to", "", "custodian name")
	from := fs.String("from", "", "issued by")
	contact := fs.String("contact", "", "custodian contact")
	if err := fs.Parse(args); err != nil {
		return err
	}

	c, err := a.custody.UpdateCustodianMetadata(ctx, *to, *from, *contact)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "saved %s (from %q, contact %q)\n", c.Name, c.IssuedBy, c.Contact)
	return nil
}

func cmdHistory(ctx context.Context, a *app, args []string) error {
	fs := a.flags("history")
	var filter store.EventFilter
	fs.StringVar(&filter.Serial, "serial", "", "only this serial")
	fs.StringVar(&filter.Custodian, "custodian", "", "only this custodian")
	fs.IntVar(&filter.Limit, "limit", 50, "maximum events, 0 for all")
	if err := fs.Parse(args); err != nil {
		return err
	}

	events, err := store.ListEvents(ctx, a.db, filter)
	if err != nil {
		return err
	}
	w := a.table()
	fmt.Fprintln(w, "WHEN\tACTION\tSERIAL\tCUSTODIAN\tNOTES")
	for _, e := range events {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			e.OccurredAt.Local().Format("2006-01-02 15:04"), e.Action, e.Serial, e.Custodian, e.Notes)
	}
	return w.Flush()
}

func cmdDelete(ctx context.Context, a *app, args []string) error {
	fs := a.flags("delete")
	reason := fs.String("reason", "", "why the items are removed")
	in := addSerialFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	serials, err := in.read(a, fs)
	if err != nil {
		return err
	}

	res, err := a.custody.SoftDelete(ctx, serials, *reason)
	a.printBatch("deleted", res)
	if blocked := res.Blocked(); len(blocked) > 0 {
		fmt.Fprintf(a.stdout, "%d issued item(s) must be returned before deleting\n", len(blocked))
	}
	return err
}

func cmdRestore(ctx context.Context, a *app, args []string) error {
	fs := a.flags("restore")
	in := addSerialFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	serials, err := in.read(a, fs)
	if err != nil {
		return err
	}

	res, err := a.custody.Restore(ctx, serials)
	a.printBatch("restored", res)
	return err
}

func cmdPurge(ctx context.Context, a *app, args []string) error {
	fs := a.flags("purge")
	yes := fs.Bool("yes", false, "confirm permanent erasure")
	in := addSerialFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	serials, err := in.read(a, fs)
	if err != nil {
		return err
	}
	if !*yes {
		return errors.New("purge is permanent; pass -yes to confirm")
	}

	res, err := a.custody.Purge(ctx, serials)
	a.printBatch("purged", res)
	return err
}

func cmdBin(ctx context.Context, a *app, args []string) error {
	if err := a.flags("bin").Parse(args); err != nil {
		return err
	}
	items, err := a.custody.RecycleBin(ctx)
	if err != nil {
		return err
	}

	w := a.table()
	fmt.Fprintln(w, "MODEL\tSERIAL\tDELETED\tREASON")
	for _, it := range items {
		d, _ := it.Deletion()
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", it.Model, it.Serial, d.DeletedAt.Local().Format("2006-01-02 15:04"), d.Reason)
	}
	return w.Flush()
}

func cmdGenerate(ctx context.Context, a *app, args []string) error {
	fs := a.flags("generate")
	to := fs.String("to", "", "custodian name")
	out := fs.String("out", a.cfg.Output.Dir, "output directory")
	proof := fs.Bool("proof", false, "also render PNG proofs")
	tmpl := fs.String("template", a.cfg.Proof.TemplateImage, "scanned blank form for proofs (PNG or JPEG)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	plan, err := a.receipts.Plan(ctx, *to)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(*out, 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	base := strings.TrimSuffix(plan.FileName, filepath.Ext(plan.FileName))

	var renderer receipt.Renderer
	if *proof {
		opts := render.ProofOptions{Dir: *out, BaseName: base, Scale: a.cfg.Proof.Scale, Logger: a.log}
		if *tmpl != "" {
			f, err := os.Open(*tmpl)
			if err != nil {
				return fmt.Errorf("opening template image: %w", err)
			}
			defer f.Close()
			opts.Template = f
		}
		pr, err := render.NewProofRenderer(opts)
		if err != nil {
			return err
		}
		renderer = receipt.RendererFunc(func(ctx context.Context, page layout.Page) error {
			start := time.Now()
			if err := pr.RenderPage(ctx, page); err != nil {
				return err
			}
			a.log.Debug("page rendered", zap.Int("page", page.Index), zap.Duration("took", time.Since(start)))
			return nil
		})
	}

	planPath := filepath.Join(*out, base+".json")
	if err := writePlanFile(planPath, plan); err != nil {
		return err
	}

	rec, err := a.receipts.Render(ctx, plan, renderer)
	if err != nil {
		os.Remove(planPath)
		return err
	}

	fmt.Fprintf(a.stdout, "%s: %d page(s), %d row(s), %d unit(s)\n", rec.FileName, rec.Pages, rec.Rows, plan.Units())
	fmt.Fprintf(a.stdout, "plan: %s\n", planPath)
	return nil
}

// writePlanFile writes plan to path. A partly written file is removed.
func writePlanFile(path string, plan receipt.Plan) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating plan file: %w", err)
	}
	err = receipt.WritePlan(f, plan)
	if cerr := f.Close(); err == nil && cerr != nil {
		err = fmt.Errorf("writing plan file: %w", cerr)
	}
	if err != nil {
		os.Remove(path)
		return err
	}
	return nil
}

func cmdReceipts(ctx context.Context, a *app, args []string) error {
	fs := a.flags("receipts")
	to := fs.String("to", "", "only this custodian")
	if err := fs.Parse(args); err != nil {
		return err
	}

	list, err := a.receipts.History(ctx, *to)
	if err != nil {
		return err
	}
	w := a.table()
	fmt.Fprintln(w, "GENERATED\tCUSTODIAN\tFILE\tPAGES\tROWS\tDIGEST")
	for _, r := range list {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%.12s\n",
			r.GeneratedAt.Local().Format("2006-01-02 15:04"), r.CustodianName, r.FileName, r.Pages, r.Rows, r.Digest)
	}
	return w.Flush()
}

func cmdCalibration(ctx context.Context, a *app, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: calibration needs show, set, reset, export or import", custody.ErrInvalidInput)
	}
	sub, rest := args[0], args[1:]

	switch sub {
	case "show":
		return printProfile(a.stdout, a.calibration.Get())

	case "set":
		if len(rest) == 0 || len(rest)%2 != 0 {
			return fmt.Errorf("%w: calibration set takes key value pairs", custody.ErrInvalidInput)
		}
		p := a.calibration.Get()
		for i := 0; i < len(rest); i += 2 {
			if err := p.SetParam(rest[i], rest[i+1]); err != nil {
				return err
			}
		}
		if err := a.calibration.Save(ctx, p); err != nil {
			return err
		}
		return printProfile(a.stdout, p)

	case "reset":
		p, err := a.calibration.Reset(ctx)
		if err != nil {
			return err
		}
		return printProfile(a.stdout, p)

	case "export":
		if len(rest) != 1 {
			return fmt.Errorf("%w: calibration export takes one file", custody.ErrInvalidInput)
		}
		if rest[0] == "-" {
			return calibration.WriteYAML(a.stdout, a.calibration.Get())
		}
		f, err := os.Create(rest[0])
		if err != nil {
			return fmt.Errorf("creating profile file: %w", err)
		}
		defer f.Close()
		if err := calibration.WriteYAML(f, a.calibration.Get()); err != nil {
			return err
		}
		return f.Close()

	case "import":
		if len(rest) != 1 {
			return fmt.Errorf("%w: calibration import takes one file", custody.ErrInvalidInput)
		}
		f, err := os.Open(rest[0])
		if err != nil {
			return fmt.Errorf("opening profile file: %w", err)
		}
		defer f.Close()
		p, err := calibration.ReadYAML(f)
		if err != nil {
			return err
		}
		if err := a.calibration.Save(ctx, p); err != nil {
			return err
		}
		return printProfile(a.stdout, p)
	}
	return fmt.Errorf("%w: unknown calibration command %q", custody.ErrInvalidInput, sub)
}

func printProfile(w io.Writer, p calibration.Profile) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, key := range calibration.Keys() {
		v, err := p.Param(key)
		if err != nil {
			return err
		}
		fmt.Fprintf(tw, "%s\t%s\n", key, v)
	}
	return tw.Flush()
}
