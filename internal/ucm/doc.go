// Package ucm implements the audio use case manager.
//
// A card's use cases are described by a master file listing one file per
// verb. Each verb file holds SectionVerb, SectionDevice and SectionModifier
// blocks with enable and disable sequences of mixer control writes. A
// Session tracks the current verb plus the enabled devices and modifiers,
// and writes the sequences of every combination that becomes active or
// inactive:
//
//	s, err := ucm.Open(ctx, "snd_soc_msm", ucm.Options{
//	    Registry:    reg,
//	    MixerOpener: mixer.OpenALSA,
//	})
//	if err != nil {
//	    return err
//	}
//	defer s.Close()
//
//	_ = s.Set(ucm.IdentVerb, ucm.VerbHiFi)
//	_ = s.Set(ucm.IdentEnableDevice, "Speaker")
//	pcm, _ := s.Get("PlaybackPCM/" + ucm.VerbHiFi)
//
// Open parses the first verb before returning and the rest in the
// background. Calls made meanwhile see only the verbs parsed so far.
package ucm
