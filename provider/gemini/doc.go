// Package gemini adapts Google's Gemini generateContent API to the
// provider capability contract, speaking SSE over plain HTTP.
package gemini
