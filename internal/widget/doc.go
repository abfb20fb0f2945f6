// Package widget serves the embeddable chat widget script, builds the script
// tags tenants paste into their sites, and optionally proxies the widget's two
// public endpoints to the backend.
package widget
