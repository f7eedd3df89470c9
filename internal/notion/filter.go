package notion

// Filter predicate tree for data source queries, mirroring the remote
// API's JSON shape. Only the conditions the two query operations need
// are modeled.

type dateCondition struct {
	Equals     string `json:"equals,omitempty"`
	OnOrAfter  string `json:"on_or_after,omitempty"`
	OnOrBefore string `json:"on_or_before,omitempty"`
}

type selectCondition struct {
	Equals     string `json:"equals,omitempty"`
	IsNotEmpty bool   `json:"is_not_empty,omitempty"`
}

type propertyFilter struct {
	Property string           `json:"property"`
	Date     *dateCondition   `json:"date,omitempty"`
	Select   *selectCondition `json:"select,omitempty"`
}

type orFilter struct {
	Or []propertyFilter `json:"or"`
}

type sortSpec struct {
	Property  string `json:"property"`
	Direction string `json:"direction"`
}

type queryRequest struct {
	Filter *orFilter  `json:"filter,omitempty"`
	Sorts  []sortSpec `json:"sorts,omitempty"`
}

// rangeFilter matches records dated within [start, end] OR carrying any
// repeat day. The OR over-fetches every recurring record regardless of
// which weekday it names; the expander places or drops them client-side
// because the remote filter language cannot express "weekday equals the
// computed day".
func rangeFilter(start, end string) *orFilter {
	return &orFilter{Or: []propertyFilter{
		{Property: propDate, Date: &dateCondition{OnOrAfter: start, OnOrBefore: end}},
		{Property: propRepeatDay, Select: &selectCondition{IsNotEmpty: true}},
	}}
}

// tomorrowFilter matches records dated exactly date OR repeating on the
// named weekday.
func tomorrowFilter(date, weekday string) *orFilter {
	return &orFilter{Or: []propertyFilter{
		{Property: propDate, Date: &dateCondition{Equals: date}},
		{Property: propRepeatDay, Select: &selectCondition{Equals: weekday}},
	}}
}
