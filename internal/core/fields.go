package core

// Draft keys shared by step handlers and the aggregate assembler
const (
	KeyOwner    = "owner_id"
	KeyTZOffset = "tz_offset_min"

	KeyName        = "name"
	KeyYear        = "year"
	KeyRegion      = "region"
	KeyCategory    = "category"
	KeyGrams       = "grams"
	KeyTempC       = "temp_c"
	KeyTastedAt    = "tasted_at"
	KeyGear        = "gear"
	KeyAromaDry    = "aroma_dry"
	KeyAromaWarmed = "aroma_warmed"
	KeyEffects     = "effects"
	KeyScenarios   = "scenarios"
	KeyRating      = "rating"
	KeySummary     = "summary"
	KeyPhotos      = "photos"

	// infusion under construction
	KeyInfusions     = "infusions"
	KeyInfusionN     = "infusion_n"
	KeyCurSeconds    = "cur_seconds"
	KeyCurColor      = "cur_color"
	KeyCurTaste      = "cur_taste"
	KeyCurSpecial    = "cur_special"
	KeyCurBody       = "cur_body"
	KeyCurAftertaste = "cur_aftertaste"

	// edit flow
	KeyEditID    = "edit_id"
	KeyEditField = "edit_field"
	KeyEditValue = "edit_value"

	// search flow
	KeySearchKind = "search_kind"
	KeySearchText = "search_text"
	KeySearchYear = "search_year"
	KeySearchMin  = "search_min_rating"

	// KeyHistory holds visited steps for back navigation.
	KeyHistory = "_history"
	// KeyAwaitOther marks a step waiting for the one free-text turn after "other".
	KeyAwaitOther = "_await_other"
)

// SelectionKey is the transient multi-select list for a step
func SelectionKey(step Step) string {
	return "_sel:" + string(step)
}
