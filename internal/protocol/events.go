package protocol

import "fmt"

// Event is the symbolic code carried by WithEvent frames.
type Event int32

const (
	EventNone Event = 0

	EventStartConnection  Event = 1
	EventFinishConnection Event = 2

	EventConnectionStarted  Event = 50
	EventConnectionFailed   Event = 51
	EventConnectionFinished Event = 52

	EventStartSession  Event = 100
	EventCancelSession Event = 101
	EventFinishSession Event = 102

	EventSessionStarted  Event = 150
	EventSessionCanceled Event = 151
	EventSessionFinished Event = 152
	EventSessionFailed   Event = 153
	EventUsageResponse   Event = 154

	EventTaskRequest  Event = 200
	EventUpdateConfig Event = 201

	EventAudioMuted Event = 250

	EventSayHello Event = 300

	EventTTSSentenceStart     Event = 350
	EventTTSSentenceEnd       Event = 351
	EventTTSResponse          Event = 352
	EventTTSEnded             Event = 359
	EventPodcastRoundStart    Event = 360
	EventPodcastRoundResponse Event = 361
	EventPodcastRoundEnd      Event = 362

	EventASRInfo     Event = 450
	EventASRResponse Event = 451
	EventASREnded    Event = 459

	EventChatTTSText Event = 500

	EventChatResponse Event = 550
	EventChatEnded    Event = 559

	EventSourceSubtitleStart         Event = 650
	EventSourceSubtitleResponse      Event = 651
	EventSourceSubtitleEnd           Event = 652
	EventTranslationSubtitleStart    Event = 653
	EventTranslationSubtitleResponse Event = 654
	EventTranslationSubtitleEnd      Event = 655
)

// Task-oriented aliases share codes with the connection events.
const (
	EventStartTask    = EventStartConnection
	EventFinishTask   = EventFinishConnection
	EventTaskStarted  = EventConnectionStarted
	EventTaskFailed   = EventConnectionFailed
	EventTaskFinished = EventConnectionFinished
	EventChargeData   = EventUsageResponse
)

var eventNames = map[Event]string{
	EventNone:                        "None",
	EventStartConnection:             "StartConnection",
	EventFinishConnection:            "FinishConnection",
	EventConnectionStarted:           "ConnectionStarted",
	EventConnectionFailed:            "ConnectionFailed",
	EventConnectionFinished:          "ConnectionFinished",
	EventStartSession:                "StartSession",
	EventCancelSession:               "CancelSession",
	EventFinishSession:               "FinishSession",
	EventSessionStarted:              "SessionStarted",
	EventSessionCanceled:             "SessionCanceled",
	EventSessionFinished:             "SessionFinished",
	EventSessionFailed:               "SessionFailed",
	EventUsageResponse:               "UsageResponse",
	EventTaskRequest:                 "TaskRequest",
	EventUpdateConfig:                "UpdateConfig",
	EventAudioMuted:                  "AudioMuted",
	EventSayHello:                    "SayHello",
	EventTTSSentenceStart:            "TTSSentenceStart",
	EventTTSSentenceEnd:              "TTSSentenceEnd",
	EventTTSResponse:                 "TTSResponse",
	EventTTSEnded:                    "TTSEnded",
	EventPodcastRoundStart:           "PodcastRoundStart",
	EventPodcastRoundResponse:        "PodcastRoundResponse",
	EventPodcastRoundEnd:             "PodcastRoundEnd",
	EventASRInfo:                     "ASRInfo",
	EventASRResponse:                 "ASRResponse",
	EventASREnded:                    "ASREnded",
	EventChatTTSText:                 "ChatTTSText",
	EventChatResponse:                "ChatResponse",
	EventChatEnded:                   "ChatEnded",
	EventSourceSubtitleStart:         "SourceSubtitleStart",
	EventSourceSubtitleResponse:      "SourceSubtitleResponse",
	EventSourceSubtitleEnd:           "SourceSubtitleEnd",
	EventTranslationSubtitleStart:    "TranslationSubtitleStart",
	EventTranslationSubtitleResponse: "TranslationSubtitleResponse",
	EventTranslationSubtitleEnd:      "TranslationSubtitleEnd",
}

// String returns the string representation of the event.
func (e Event) String() string {
	if name, ok := eventNames[e]; ok {
		return name
	}

	return fmt.Sprintf("Event(%d)", int32(e))
}

// idFields records which identifier follows the event code on the wire.
type idFields struct {
	sessionID bool
	connectID bool
}

// connectionScoped lists the events that are not tied to a session. Every
// event missing from this table carries a session id.
var connectionScoped = map[Event]idFields{
	EventStartConnection:    {},
	EventFinishConnection:   {},
	EventConnectionStarted:  {connectID: true},
	EventConnectionFailed:   {connectID: true},
	EventConnectionFinished: {connectID: true},
}

func fieldsFor(e Event) idFields {
	if fields, ok := connectionScoped[e]; ok {
		return fields
	}

	return idFields{sessionID: true}
}

// HasSessionID reports whether frames with this event carry a session id.
func (e Event) HasSessionID() bool {
	return fieldsFor(e).sessionID
}

// HasConnectID reports whether frames with this event carry a connect id.
func (e Event) HasConnectID() bool {
	return fieldsFor(e).connectID
}
