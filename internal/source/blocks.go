package source

import (
	"strconv"

	"github.com/PuerkitoBio/goquery"
)

// maxBlockDepth bounds how far a listing element is walked up to find the
// card that holds its partner element.
const maxBlockDepth = 5

// enclosingBlock walks up from anchor to the nearest ancestor holding an
// element that matches partnerSel and passes accept (nil accepts all). It
// returns that ancestor and the first accepted partner. The block is
// rejected when it holds more than one distinct anchorSel element, because
// the partner could then belong to a sibling listing. Links to the same
// href count once.
func enclosingBlock(anchor *goquery.Selection, anchorSel, partnerSel string, accept func(*goquery.Selection) bool) (block, partner *goquery.Selection) {
	block = anchor
	for depth := 0; depth < maxBlockDepth; depth++ {
		block = block.Parent()
		if block.Length() == 0 {
			return nil, nil
		}
		partner = block.Find(partnerSel).FilterFunction(func(_ int, s *goquery.Selection) bool {
			return accept == nil || accept(s)
		}).First()
		if partner.Length() == 0 {
			continue
		}
		if distinct(block.Find(anchorSel)) > 1 {
			return nil, nil
		}
		return block, partner
	}
	return nil, nil
}

func distinct(sel *goquery.Selection) int {
	keys := make(map[string]struct{})
	sel.Each(func(i int, s *goquery.Selection) {
		keys[s.AttrOr("href", "#"+strconv.Itoa(i))] = struct{}{}
	})
	return len(keys)
}
