package tts

/*
#cgo LDFLAGS: -lespeak-ng
#include <stdlib.h>
#include <espeak-ng/speak_lib.h>

static int
nova_say(const char *text, const char *lang, int rate)
{
	if (!text || !lang)
	{ return -1; }

	if (espeak_Initialize(AUDIO_OUTPUT_SYNCH_PLAYBACK, 500, NULL, 0) < 0)
	{ return -2; }

	espeak_VOICE spec = { .languages = lang };
	espeak_SetVoiceByProperties(&spec);
	if (rate > 0)
	{ espeak_SetParameter(espeakRATE, rate, 0); }

	espeak_Synth(text, 500, 0, 0, 0, espeakCHARS_AUTO, NULL, NULL);
	espeak_Synchronize();
	espeak_Terminate();

	return 0;
}
*/
import "C"

import (
	"fmt"
	"sync"
	"unsafe"
)

// Voice speaks through espeak-ng. Calls are serialized since the library
// keeps global state.
type Voice struct {
	Language string // espeak voice language, e.g. "en"
	Rate     int    // words per minute, 0 keeps the default

	mu sync.Mutex
}

func New(language string, rate int) *Voice {
	if language == "" {
		language = "en"
	}
	return &Voice{Language: language, Rate: rate}
}

func (v *Voice) Say(text string) error {
	if text == "" {
		return nil
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	ctext := C.CString(text)
	defer C.free(unsafe.Pointer(ctext))
	clang := C.CString(v.Language)
	defer C.free(unsafe.Pointer(clang))

	if rc := C.nova_say(ctext, clang, C.int(v.Rate)); rc != 0 {
		return fmt.Errorf("espeak: code %d", int(rc))
	}
	return nil
}
