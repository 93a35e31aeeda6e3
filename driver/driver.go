// Package driver fills in and submits the Yahoo! Auctions sell form for one
// listing record at a time.
package driver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/aluiziolira/go-auction-lister/models"
	"github.com/aluiziolira/go-auction-lister/parser"
)

// DefaultSellURL is the sell form opened before the first record and after
// every submission.
const DefaultSellURL = "https://auctions.yahoo.co.jp/sell/jp/show/submit?category=0"

// Timing holds the waits and pauses used while driving the form.
type Timing struct {
	ElementTimeout time.Duration
	ModalTimeout   time.Duration
	ModalSettle    time.Duration
	UploadSettle   time.Duration
	ExpandSettle   time.Duration
	ReloadSettle   time.Duration
	PauseMin       time.Duration
	PauseMax       time.Duration
	SubmitPauseMin time.Duration
	SubmitPauseMax time.Duration
}

// DefaultTiming mirrors the pacing of a careful human operator.
func DefaultTiming() Timing {
	return Timing{
		ElementTimeout: 10 * time.Second,
		ModalTimeout:   3 * time.Second,
		ModalSettle:    time.Second,
		UploadSettle:   3 * time.Second,
		ExpandSettle:   500 * time.Millisecond,
		ReloadSettle:   time.Second,
		PauseMin:       time.Second,
		PauseMax:       3 * time.Second,
		SubmitPauseMin: 2 * time.Second,
		SubmitPauseMax: 8 * time.Second,
	}
}

// Prober checks that the sell page is reachable before the tab reloads.
type Prober interface {
	AwaitReachable(ctx context.Context, url string) error
}

// Options configures a Driver.
type Options struct {
	SellURL string
	Timing  Timing
	Probe   Prober
}

// Driver posts records through a Page.
type Driver struct {
	page    Page
	images  *ImageResolver
	probe   Prober
	sellURL string
	timing  Timing

	sleep func(ctx context.Context, d time.Duration) error
}

// New builds a driver. A zero Timing selects DefaultTiming.
func New(page Page, images *ImageResolver, opts Options) *Driver {
	if opts.SellURL == "" {
		opts.SellURL = DefaultSellURL
	}
	if opts.Timing == (Timing{}) {
		opts.Timing = DefaultTiming()
	}
	return &Driver{
		page:    page,
		images:  images,
		probe:   opts.Probe,
		sellURL: opts.SellURL,
		timing:  opts.Timing,
		sleep:   sleepContext,
	}
}

type formStep struct {
	name string
	run  func(ctx context.Context, record models.Record) error
}

func (d *Driver) steps() []formStep {
	return []formStep{
		{"close_modal", d.closeModalStep},
		{"images", d.uploadImages},
		{"close_modal", d.closeModalStep},
		{"category", d.setCategory},
		{"title", d.setTitle},
		{"description", d.setDescription},
		{"prices", d.setPrices},
		{"end_time", d.setEndDateTime},
		{"collection", d.setCollection},
		{"auto_relist", d.setAutoRelist},
		{"close_modal", d.closeModalStep},
		{"confirm", d.confirm},
		{"close_modal", d.closeModalStep},
		{"submit", d.submit},
		{"close_modal", d.closeModalStep},
		{"continue", d.continueListing},
	}
}

// PostItem drives every form step for record and reports the result.
func (d *Driver) PostItem(ctx context.Context, record models.Record) models.Outcome {
	for _, st := range d.steps() {
		if err := st.run(ctx, record); err != nil {
			slog.Warn("form step failed",
				slog.String("step", st.name),
				slog.String("title", record.Title()),
				slog.Any("error", err),
			)
			return models.Failure(&StepError{Step: st.name, Err: err})
		}
	}
	slog.Debug("listing submitted", slog.String("title", record.Title()))
	return models.Success()
}

// Open navigates to the sell form and waits until it accepts input.
func (d *Driver) Open(ctx context.Context) error {
	if err := d.page.Navigate(ctx, d.sellURL); err != nil {
		return fmt.Errorf("open sell page: %w", err)
	}
	if err := d.waitFor(ctx, "open", selReady, d.timing.ElementTimeout); err != nil {
		return err
	}
	if err := d.sleep(ctx, d.timing.ReloadSettle); err != nil {
		return err
	}
	return d.closeModal(ctx)
}

// ReloadAndAwaitReady reloads the tab and waits until the form is usable
// again.
func (d *Driver) ReloadAndAwaitReady(ctx context.Context) error {
	if d.probe != nil {
		if err := d.probe.AwaitReachable(ctx, d.sellURL); err != nil {
			return fmt.Errorf("sell page unreachable: %w", err)
		}
	}
	if err := d.page.Reload(ctx); err != nil {
		return fmt.Errorf("reload page: %w", err)
	}
	if err := d.waitFor(ctx, "reload", selReady, d.timing.ElementTimeout); err != nil {
		return err
	}
	if err := d.sleep(ctx, d.timing.ReloadSettle); err != nil {
		return err
	}
	return d.closeModal(ctx)
}

// waitFor waits up to timeout for sel and converts an expired deadline into
// *ElementTimeoutError.
func (d *Driver) waitFor(ctx context.Context, step string, sel Selector, timeout time.Duration) error {
	wctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	err := d.page.WaitVisible(wctx, sel)
	if err == nil {
		return nil
	}
	if ctx.Err() == nil && wctx.Err() != nil {
		return &ElementTimeoutError{Step: step, Selector: sel.Query, Err: err}
	}
	return err
}

func (d *Driver) closeModalStep(ctx context.Context, _ models.Record) error {
	return d.closeModal(ctx)
}

// closeModal dismisses the campaign modal when it shows up. Its absence is
// not an error.
func (d *Driver) closeModal(ctx context.Context) error {
	err := d.waitFor(ctx, "close_modal", selModalClose, d.timing.ModalTimeout)
	var timeout *ElementTimeoutError
	if errors.As(err, &timeout) {
		return nil
	}
	if err != nil {
		return err
	}
	if err := d.page.Click(ctx, selModalClose); err != nil {
		slog.Debug("campaign modal close failed", slog.Any("error", err))
		return nil
	}
	slog.Debug("campaign modal closed")
	return d.sleep(ctx, d.timing.ModalSettle)
}

func (d *Driver) uploadImages(ctx context.Context, record models.Record) error {
	if d.images == nil {
		return &PermissionError{Err: errors.New("no image folder selected")}
	}
	files, err := d.images.Resolve(record.Images())
	if err != nil {
		return err
	}
	if err := d.waitFor(ctx, "images", selImageInput, d.timing.ElementTimeout); err != nil {
		return err
	}
	if err := d.page.Upload(ctx, selImageInput, files); err != nil {
		return err
	}
	slog.Debug("images uploaded", slog.String("title", record.Title()), slog.Int("count", len(files)))
	return d.sleep(ctx, d.timing.UploadSettle)
}

func (d *Driver) setCategory(ctx context.Context, record models.Record) error {
	if err := d.waitFor(ctx, "category", selCategory, d.timing.ElementTimeout); err != nil {
		return err
	}
	if err := d.page.Select(ctx, selCategory, record.Get(models.FieldCategory)); err != nil {
		return err
	}
	return d.pause(ctx)
}

func (d *Driver) setTitle(ctx context.Context, record models.Record) error {
	if err := d.fill(ctx, "title", selTitle, record.Title()); err != nil {
		return err
	}
	return d.pause(ctx)
}

func (d *Driver) setDescription(ctx context.Context, record models.Record) error {
	if err := d.click(ctx, "description", selHTMLTag); err != nil {
		return err
	}
	if err := d.sleep(ctx, d.timing.ExpandSettle); err != nil {
		return err
	}
	if err := d.fill(ctx, "description", selDescription, record.Get(models.FieldDescription)); err != nil {
		return err
	}
	return d.pause(ctx)
}

func (d *Driver) setPrices(ctx context.Context, record models.Record) error {
	start := parser.NormalizePrice(record.Get(models.FieldStartPrice))
	if err := d.fill(ctx, "prices", selStartPrice, start); err != nil {
		return err
	}
	if err := d.click(ctx, "prices", selBuyNowToggle); err != nil {
		return err
	}
	if err := d.sleep(ctx, d.timing.ExpandSettle); err != nil {
		return err
	}
	buyNow := parser.NormalizePrice(record.Get(models.FieldBuyNowPrice))
	if err := d.fill(ctx, "prices", selBuyNowPrice, buyNow); err != nil {
		return err
	}
	return d.pause(ctx)
}

func (d *Driver) setEndDateTime(ctx context.Context, record models.Record) error {
	raw := record.Get(models.FieldEndDate)
	date, err := parser.NormalizeDate(raw)
	if err != nil {
		return &FieldError{Field: models.FieldEndDate, Value: raw, Err: err}
	}
	if err := d.choose(ctx, "end_time", selEndDate, date); err != nil {
		return err
	}
	if err := d.choose(ctx, "end_time", selEndTime, record.Get(models.FieldEndTime)); err != nil {
		return err
	}
	return d.pause(ctx)
}

func (d *Driver) setCollection(ctx context.Context, record models.Record) error {
	if err := d.fill(ctx, "collection", selCollection, record.Get(models.FieldCollection)); err != nil {
		return err
	}
	return d.pause(ctx)
}

// setAutoRelist opens the relist section when the record asks for it. Counts
// outside 1-3 leave the form default in place.
func (d *Driver) setAutoRelist(ctx context.Context, record models.Record) error {
	raw := record.Get(models.FieldAutoRelist)
	if raw == "" {
		return nil
	}
	if err := d.click(ctx, "auto_relist", selAutoRelistOpen); err != nil {
		return err
	}
	if err := d.sleep(ctx, d.timing.ExpandSettle); err != nil {
		return err
	}
	if err := d.waitFor(ctx, "auto_relist", selAutoRelist, d.timing.ElementTimeout); err != nil {
		return err
	}
	if count, ok := parser.NormalizeRelist(raw); ok {
		if err := d.page.Select(ctx, selAutoRelist, count); err != nil {
			return err
		}
	} else {
		slog.Warn("ignoring auto relist count", slog.String("title", record.Title()), slog.String("value", raw))
	}
	return d.pause(ctx)
}

func (d *Driver) confirm(ctx context.Context, _ models.Record) error {
	if err := d.click(ctx, "confirm", selConfirm); err != nil {
		return err
	}
	return d.pause(ctx)
}

func (d *Driver) submit(ctx context.Context, _ models.Record) error {
	if err := d.click(ctx, "submit", selSubmit); err != nil {
		return err
	}
	return d.sleep(ctx, d.randomBetween(d.timing.SubmitPauseMin, d.timing.SubmitPauseMax))
}

// continueListing follows the "list another item" link, or navigates to
// the sell form when the link never shows up.
func (d *Driver) continueListing(ctx context.Context, _ models.Record) error {
	err := d.click(ctx, "continue", selContinue)
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	slog.Debug("continue link unavailable, opening sell page", slog.Any("error", err))
	return d.page.Navigate(ctx, d.sellURL)
}

func (d *Driver) click(ctx context.Context, step string, sel Selector) error {
	if err := d.waitFor(ctx, step, sel, d.timing.ElementTimeout); err != nil {
		return err
	}
	return d.page.Click(ctx, sel)
}

func (d *Driver) fill(ctx context.Context, step string, sel Selector, text string) error {
	if err := d.waitFor(ctx, step, sel, d.timing.ElementTimeout); err != nil {
		return err
	}
	return d.page.Fill(ctx, sel, text)
}

func (d *Driver) choose(ctx context.Context, step string, sel Selector, value string) error {
	if err := d.waitFor(ctx, step, sel, d.timing.ElementTimeout); err != nil {
		return err
	}
	return d.page.Select(ctx, sel, value)
}

func (d *Driver) pause(ctx context.Context) error {
	return d.sleep(ctx, d.randomBetween(d.timing.PauseMin, d.timing.PauseMax))
}

func (d *Driver) randomBetween(min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	return min + rand.N(max-min+1)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
