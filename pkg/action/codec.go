package action

import (
	"encoding/json"
	"fmt"
)

type envelope struct {
	Kind Kind `json:"kind"`
}

// Decode parses one wire envelope ({"kind": ..., fields...}) into its concrete
// variant.
func Decode(data []byte) (Action, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("parse action envelope: %w", err)
	}

	blank, err := blankFor(env.Kind)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(data, blank); err != nil {
		return nil, fmt.Errorf("parse %s action: %w", env.Kind, err)
	}
	return deref(blank), nil
}

// Encode renders an action as a wire envelope with its kind tag inlined.
func Encode(a Action) ([]byte, error) {
	if a == nil {
		return nil, fmt.Errorf("encode nil action")
	}
	body, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("encode %s action: %w", a.Kind(), err)
	}

	fields := make(map[string]json.RawMessage)
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, fmt.Errorf("encode %s action: %w", a.Kind(), err)
	}
	kindTag, err := json.Marshal(a.Kind())
	if err != nil {
		return nil, err
	}
	fields["kind"] = kindTag
	return json.Marshal(fields)
}

func blankFor(kind Kind) (any, error) {
	switch kind {
	case KindMoveTo:
		return &MoveTo{}, nil
	case KindTraceAlong:
		return &TraceAlong{}, nil
	case KindClick:
		return &Click{}, nil
	case KindPressRelease:
		return &PressRelease{}, nil
	case KindDrag:
		return &Drag{}, nil
	case KindScroll:
		return &Scroll{}, nil
	case KindTypeKeySequence:
		return &TypeKeySequence{}, nil
	case KindHoldKeys:
		return &HoldKeys{}, nil
	case KindTypeText:
		return &TypeText{}, nil
	case KindPasteText:
		return &PasteText{}, nil
	case KindWait:
		return &Wait{}, nil
	case KindScreenshot:
		return &Screenshot{}, nil
	case KindCursorPosition:
		return &CursorPosition{}, nil
	case KindApplicationControl:
		return &ApplicationControl{}, nil
	case KindFileWrite:
		return &FileWrite{}, nil
	case KindFileRead:
		return &FileRead{}, nil
	case KindOcr:
		return &Ocr{}, nil
	case KindFindText:
		return &FindText{}, nil
	case KindEnhancedScreenshot:
		return &EnhancedScreenshot{}, nil
	default:
		return nil, fmt.Errorf("unknown action kind %q", kind)
	}
}

func deref(blank any) Action {
	switch v := blank.(type) {
	case *MoveTo:
		return *v
	case *TraceAlong:
		return *v
	case *Click:
		return *v
	case *PressRelease:
		return *v
	case *Drag:
		return *v
	case *Scroll:
		return *v
	case *TypeKeySequence:
		return *v
	case *HoldKeys:
		return *v
	case *TypeText:
		return *v
	case *PasteText:
		return *v
	case *Wait:
		return *v
	case *Screenshot:
		return *v
	case *CursorPosition:
		return *v
	case *ApplicationControl:
		return *v
	case *FileWrite:
		return *v
	case *FileRead:
		return *v
	case *Ocr:
		return *v
	case *FindText:
		return *v
	case *EnhancedScreenshot:
		return *v
	default:
		return nil
	}
}
