// Package translate rewrites subtitle cue text into another language
// through a JSON-completion backend.
//
// Cues travel to the backend in chunks as {"index", "text"} arrays and come
// back the same shape. Indices and timing never change: a cue whose index
// is absent from the response keeps its original text, so a sloppy backend
// degrades translation quality without corrupting the file. Token usage is
// accumulated across chunks and reported in Stats.
package translate
