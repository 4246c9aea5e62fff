/*
Package chatflow runs conversation-flow graphs authored by a visual chatbot builder.

The builder only authors a typed graph (start, text, input, conditional, ai,
router, action, tts, stt and ai-voice-agent nodes joined by edges). This package
walks that graph once per end-user conversation: it substitutes {{variables}},
evaluates conditions, pauses for user input and dispatches to pluggable AI and
voice providers.

# Concept

A Session is a plain JSON snapshot. Every call to Start or Resume is one
execution pass: the engine loads the snapshot, runs nodes until the session
waits for input, completes or fails, and saves the new snapshot. Passes of the
same session never interleave, so any process sharing the SessionStore can
resume any session.

Outputs are returned as DeliveryItems. The engine never sleeps; DelayMs is a
scheduling hint for the channel that delivers them.

# Usage

	templates, err := memory.NewTemplatesFromJSON(doc)
	if err != nil {
		log.Fatal(err)
	}

	eng, err := chatflow.New(templates,
		chatflow.WithProviders(providers),
		chatflow.WithSessionStore(redis.New(addr)),
	)
	if err != nil {
		log.Fatal(err)
	}

	res, err := eng.Start(ctx, "lead-intake", map[string]any{"name": "Ana"})
	if err != nil {
		log.Fatal(err)
	}
	for _, item := range res.Items {
		send(item)
	}

	// later, when the user answers
	res, err = eng.Resume(ctx, res.SessionID, domain.TextInput("25"))

Templates and sessions are reached through the interfaces of package ports.
Adapters live under pkg/adapters.
*/
package chatflow
