// Package models defines data structures shared by the lister components.
package models

// Field names used by the Yahoo! Auctions listing sheet.
const (
	FieldTitle       = "タイトル"
	FieldCategory    = "カテゴリ"
	FieldDescription = "説明"
	FieldStartPrice  = "開始価格"
	FieldBuyNowPrice = "即決価格"
	FieldEndDate     = "開催期間"
	FieldEndTime     = "終了時間"
	FieldCollection  = "おすすめコレクション"
	FieldAutoRelist  = "自動再出品"
	FieldImagePrefix = "画像"
)

// MaxImages is the number of image columns (画像1..画像5) read per record.
const MaxImages = 5

// RequiredFields lists the columns every listing sheet must carry.
var RequiredFields = []string{
	FieldTitle,
	FieldCategory,
	FieldDescription,
	FieldStartPrice,
	FieldBuyNowPrice,
	FieldEndDate,
	FieldEndTime,
}

// Record is one row of the listing sheet. Field order follows the header.
type Record struct {
	keys   []string
	values map[string]string
}

// NewRecord builds a record from parallel header and value slices. Missing
// trailing values become empty strings; extra values are ignored. A repeated
// header keeps its first position and its last value.
func NewRecord(headers, values []string) Record {
	r := Record{
		keys:   make([]string, 0, len(headers)),
		values: make(map[string]string, len(headers)),
	}
	for i, h := range headers {
		v := ""
		if i < len(values) {
			v = values[i]
		}
		if _, ok := r.values[h]; !ok {
			r.keys = append(r.keys, h)
		}
		r.values[h] = v
	}
	return r
}

// Get returns the value for a field, or "" when absent.
func (r Record) Get(field string) string {
	return r.values[field]
}

// Lookup reports whether the field exists in the record.
func (r Record) Lookup(field string) (string, bool) {
	v, ok := r.values[field]
	return v, ok
}

// Fields returns the field names in header order.
func (r Record) Fields() []string {
	out := make([]string, len(r.keys))
	copy(out, r.keys)
	return out
}

// Values returns the values in header order.
func (r Record) Values() []string {
	out := make([]string, len(r.keys))
	for i, k := range r.keys {
		out[i] = r.values[k]
	}
	return out
}

// Len returns the number of fields.
func (r Record) Len() int {
	return len(r.keys)
}

// Title is the identifying field used in logs and notifications.
func (r Record) Title() string {
	return r.values[FieldTitle]
}

// Images returns the non-empty image file names in column order.
func (r Record) Images() []string {
	var out []string
	for i := 1; i <= MaxImages; i++ {
		name := r.values[imageField(i)]
		if name != "" {
			out = append(out, name)
		}
	}
	return out
}

// Map returns a copy of the field values.
func (r Record) Map() map[string]string {
	out := make(map[string]string, len(r.values))
	for k, v := range r.values {
		out[k] = v
	}
	return out
}

func imageField(i int) string {
	return FieldImagePrefix + string(rune('0'+i))
}
