package infer

import "github.com/drcash-dev/drcash/internal/model"

// Keywords maps each role to an ordered list of case-insensitive substrings.
type Keywords map[model.Role][]string

// KeywordSet holds the keyword lists per document type.
type KeywordSet map[model.DocumentType]Keywords

var (
	amountKeywords = []string{"금액", "거래금액", "출금", "입금", "amount", "amt"}
	dateKeywords   = []string{"일자", "거래일", "날짜", "date"}
	memoKeywords   = []string{"적요", "내용", "메모", "거래내용", "비고", "상세", "memo", "desc", "note"}
	itemKeywords   = []string{"품목", "내역", "상품", "item", "product"}

	bankNameKeywords = []string{"거래처", "상대", "업체", "상호", "가맹점", "받는", "예금주", "name"}
	taxNameKeywords  = []string{"거래처", "상호", "공급자", "공급받는", "업체", "name"}
)

// DefaultKeywords returns the built-in lists for Korean bank statements and
// tax invoice exports.
func DefaultKeywords() KeywordSet {
	return KeywordSet{
		model.DocumentBank: {
			model.RoleAmount: clone(amountKeywords),
			model.RoleName:   clone(bankNameKeywords),
			model.RoleMemo:   clone(memoKeywords),
			model.RoleDate:   clone(dateKeywords),
		},
		model.DocumentTax: {
			model.RoleAmount: clone(amountKeywords),
			model.RoleName:   clone(taxNameKeywords),
			model.RoleDate:   clone(dateKeywords),
			model.RoleItem:   clone(itemKeywords),
		},
	}
}

func clone(s []string) []string {
	return append([]string(nil), s...)
}
