package driver

import "context"

// Selector addresses one element on the sell page, either by CSS query or
// by XPath expression.
type Selector struct {
	Query string
	XPath bool
}

func (s Selector) String() string {
	return s.Query
}

// CSS builds a CSS selector.
func CSS(query string) Selector {
	return Selector{Query: query}
}

// XPath builds an XPath selector.
func XPath(expr string) Selector {
	return Selector{Query: expr, XPath: true}
}

// Page is the subset of browser tab operations the driver needs. Every call
// is bounded by ctx.
type Page interface {
	Navigate(ctx context.Context, url string) error
	Reload(ctx context.Context) error
	// WaitVisible blocks until the element is visible or ctx is done.
	WaitVisible(ctx context.Context, sel Selector) error
	Click(ctx context.Context, sel Selector) error
	// Fill clears the element and types text into it.
	Fill(ctx context.Context, sel Selector, text string) error
	// Select sets the element value and fires a change event.
	Select(ctx context.Context, sel Selector, value string) error
	// Upload attaches local files to a file input.
	Upload(ctx context.Context, sel Selector, files []string) error
}

// Sell page elements.
var (
	selModalClose     = CSS("#js-CampaignPRModal_submit")
	selImageInput     = CSS("#selectFileMultiple")
	selCategory       = CSS(`[name="category"]`)
	selTitle          = CSS("#fleaTitleForm")
	selHTMLTag        = CSS("#aucHTMLtag")
	selDescription    = CSS(`[name="Description_plain_work"]`)
	selStartPrice     = CSS("#auc_StartPrice_auction")
	selBuyNowToggle   = XPath(`//dt[contains(@class, 'js-toggleExpand-trigger')][contains(text(), '即決価格を設定する')]`)
	selBuyNowPrice    = CSS("#auc_BidOrBuyPrice_auction")
	selEndDate        = CSS("#ClosingYMD")
	selEndTime        = CSS("#ClosingTime")
	selCollection     = CSS("#acMdAttentionAuc")
	selAutoRelistOpen = XPath(`//dt[contains(@class, 'js-toggleExpand-trigger')][contains(text(), '自動再出品を設定する')]`)
	selAutoRelist     = CSS("#numResubmit")
	selConfirm        = CSS("#submit_form_btn")
	selSubmit         = CSS("#auc_preview_submit_down")
	selContinue       = XPath(`//a[contains(@href, '/sell/jp/show/submit')][@data-cl_cl_index='8']`)

	// selReady marks a sell form that is ready for input.
	selReady = selTitle
)
