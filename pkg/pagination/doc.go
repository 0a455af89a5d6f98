// Package pagination walks cursor-paginated list endpoints.
//
// The commerce API returns a Link header on every page of a list endpoint:
//
//	Link: <https://shop.example/admin/api/2021-04/customers.json?limit=250&page_info=abc>; rel="previous",
//	      <https://shop.example/admin/api/2021-04/customers.json?limit=250&page_info=def>; rel="next"
//
// The page_info query parameter of the rel="next" entry is the continuation
// token for the following request. Pages must be requested one after another;
// each request needs the token from the previous response.
//
// Example usage:
//
//	pager := pagination.NewPager(fetcher)
//	for page, err := range pager.Pages(ctx) {
//		if err != nil {
//			return err
//		}
//		// decode page.Body
//	}
//
// The pager:
//   - Starts with an empty token
//   - Yields each page before requesting the next one
//   - Stops when no rel="next" link is present or the token repeats
//   - Stops at the first fetch error (no retry)
package pagination
