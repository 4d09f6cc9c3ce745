// Package dom holds a parsed HTML page and the small set of DOM capabilities
// server-side page assembly needs: id and selector lookups, fragment parsing,
// sibling insertion and click-style event dispatch. Trees come from
// golang.org/x/net/html and selectors are evaluated with cascadia.
package dom
