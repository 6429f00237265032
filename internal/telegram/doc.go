// Package telegram is a typed client for the sticker endpoints of the Bot API.
//
// Every call decodes the {ok, result, description, parameters} envelope;
// ok:false responses become *APIError values that match services.ErrRemote,
// and transport failures are tagged as transient. Results are decoded into
// github.com/go-telegram/bot/models types. Array fields are sent as JSON
// strings inside form data, and file uploads stream multipart bodies.
package telegram
