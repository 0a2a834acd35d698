package tokenizer

// state identifies the tokenizer state machine position.
//
// The set covers the supported families: data, tag open/close, tag name,
// attributes, markup declaration dispatch, comments (including bogus
// comment recovery), and DOCTYPE. RAWTEXT/RCDATA and script-data families
// are deliberately absent: their content tokenizes as ordinary data text,
// which is this engine's documented fallback.
type state uint8

const (
	stateData state = iota
	stateTagOpen
	stateEndTagOpen
	stateTagName
	stateBeforeAttrName
	stateAttrName
	stateAfterAttrName
	stateBeforeAttrValue
	stateAttrValueDouble
	stateAttrValueSingle
	stateAttrValueUnquoted
	stateAfterAttrValueQuoted
	stateSelfClosingStartTag
	stateMarkupDeclarationOpen
	stateCommentStart
	stateCommentStartDash
	stateComment
	stateCommentEndDash
	stateCommentEnd
	stateCommentEndBang
	stateBogusComment
	stateDoctype
	stateBeforeDoctypeName
	stateDoctypeName
	stateAfterDoctypeName
	stateAfterDoctypePublicKeyword
	stateBeforeDoctypePublicID
	stateDoctypePublicIDQuoted
	stateAfterDoctypePublicID
	stateAfterDoctypeSystemKeyword
	stateBeforeDoctypeSystemID
	stateDoctypeSystemIDQuoted
	stateAfterDoctypeSystemID
	stateBogusDoctype
)

func (s state) String() string {
	switch s {
	case stateData:
		return "Data"
	case stateTagOpen:
		return "TagOpen"
	case stateEndTagOpen:
		return "EndTagOpen"
	case stateTagName:
		return "TagName"
	case stateBeforeAttrName:
		return "BeforeAttrName"
	case stateAttrName:
		return "AttrName"
	case stateAfterAttrName:
		return "AfterAttrName"
	case stateBeforeAttrValue:
		return "BeforeAttrValue"
	case stateAttrValueDouble:
		return "AttrValueDouble"
	case stateAttrValueSingle:
		return "AttrValueSingle"
	case stateAttrValueUnquoted:
		return "AttrValueUnquoted"
	case stateAfterAttrValueQuoted:
		return "AfterAttrValueQuoted"
	case stateSelfClosingStartTag:
		return "SelfClosingStartTag"
	case stateMarkupDeclarationOpen:
		return "MarkupDeclarationOpen"
	case stateCommentStart:
		return "CommentStart"
	case stateCommentStartDash:
		return "CommentStartDash"
	case stateComment:
		return "Comment"
	case stateCommentEndDash:
		return "CommentEndDash"
	case stateCommentEnd:
		return "CommentEnd"
	case stateCommentEndBang:
		return "CommentEndBang"
	case stateBogusComment:
		return "BogusComment"
	case stateDoctype:
		return "Doctype"
	case stateBeforeDoctypeName:
		return "BeforeDoctypeName"
	case stateDoctypeName:
		return "DoctypeName"
	case stateAfterDoctypeName:
		return "AfterDoctypeName"
	case stateAfterDoctypePublicKeyword:
		return "AfterDoctypePublicKeyword"
	case stateBeforeDoctypePublicID:
		return "BeforeDoctypePublicID"
	case stateDoctypePublicIDQuoted:
		return "DoctypePublicIDQuoted"
	case stateAfterDoctypePublicID:
		return "AfterDoctypePublicID"
	case stateAfterDoctypeSystemKeyword:
		return "AfterDoctypeSystemKeyword"
	case stateBeforeDoctypeSystemID:
		return "BeforeDoctypeSystemID"
	case stateDoctypeSystemIDQuoted:
		return "DoctypeSystemIDQuoted"
	case stateAfterDoctypeSystemID:
		return "AfterDoctypeSystemID"
	case stateBogusDoctype:
		return "BogusDoctype"
	default:
		return "Unknown"
	}
}
