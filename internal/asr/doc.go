// Package asr defines the common provider adapter contract for speech
// recognition vendors: the start/feed/stop lifecycle, the incremental
// transcript delta model, the session state machine and the shared
// error taxonomy.
package asr
