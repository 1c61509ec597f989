package enums

// DocumentKind names the generated paperwork types; it doubles as the usage counter key.
type DocumentKind string

const (
	DocumentKindVoucher DocumentKind = "voucher"
	DocumentKindMinutes DocumentKind = "minutes"
)

func (k DocumentKind) String() string {
	return string(k)
}
