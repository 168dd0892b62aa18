// Package social shares delivered videos to Lens: profile lookup, wallet
// authentication, typed-data post creation through the relayer and polling
// until the publication is indexed.
package social
