// Package option defines the typed, enable-gated configuration values the
// configurator materializes into firmware source, the ordered Set that holds
// them and the Provider interface the forms layer implements.
package option
