// Package sharepoint talks to the SharePoint REST API: token exchange
// against the ACS endpoint and paginated list item retrieval.
//
// It implements the driven.TokenProvider and driven.ListSource ports.
// Tokens are cached in memory only and never written to disk.
package sharepoint
