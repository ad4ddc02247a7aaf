// Package chat runs the conversation lane of the bridge.
//
// A Session holds the dialogue history and the active model, turns chat
// commands into provider calls, and streams the reply back over the ipc
// channel as chunk events followed by one done or error event. The
// system prompt is rebuilt for every request so edits to the context
// file are always visible, and replies are scanned for structured edit
// hunks the host can apply directly.
//
// Providers cover the OpenAI-compatible endpoint (the default, with a
// configurable base URL), Anthropic for claude models, and Google for
// gemini models.
package chat
