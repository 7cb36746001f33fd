package keyspace

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecode_RoundTrip(t *testing.T) {
	t.Parallel()

	tests := []struct {
		kind Kind
		ref  Ref
		want Key
	}{
		{KindUser, Ref{UserID: "u1"}, Key{PK: "u#u1", SK: "A"}},
		{KindOrganization, Ref{OrgID: "o1"}, Key{PK: "o#o1", SK: "A"}},
		{KindOrgMember, Ref{OrgID: "o1", UserID: "u2"}, Key{PK: "o#o1", SK: "u#u2"}},
		{KindInvitation, Ref{OrgID: "o1", Email: "a@b.com"}, Key{PK: "o#o1", SK: "i#a@b.com"}},
		{KindWorkspace, Ref{OrgID: "o1", WorkspaceID: "w1"}, Key{PK: "o#o1", SK: "w#w1"}},
		{KindWorkspaceMember, Ref{WorkspaceID: "w1", UserID: "u2"}, Key{PK: "w#w1", SK: "u#u2"}},
		{KindForm, Ref{WorkspaceID: "w1", FormID: "f1"}, Key{PK: "w#w1", SK: "f#f1"}},
		{KindField, Ref{FormID: "f1", FieldID: "3"}, Key{PK: "f#f1", SK: "d#3"}},
		{KindResponse, Ref{FormID: "f1", ResponseID: "r1"}, Key{PK: "f#f1", SK: "r#r1"}},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			key, err := Encode(tt.kind, tt.ref)
			require.NoError(t, err)
			assert.Equal(t, tt.want, key)

			kind, ref, err := Decode(key)
			require.NoError(t, err)
			assert.Equal(t, tt.kind, kind)
			assert.Equal(t, tt.ref, ref)
		})
	}
}

func TestEncode_NormalizesEmail(t *testing.T) {
	key, err := Encode(KindInvitation, Ref{OrgID: "o1", Email: "  A@B.Com "})
	require.NoError(t, err)
	assert.Equal(t, "i#a@b.com", key.SK)
}

func TestEncode_RejectsMalformedIdentifiers(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		kind Kind
		ref  Ref
	}{
		{"empty user", KindUser, Ref{}},
		{"separator in id", KindOrganization, Ref{OrgID: "o#1"}},
		{"missing parent", KindForm, Ref{FormID: "f1"}},
		{"missing child", KindWorkspace, Ref{OrgID: "o1"}},
		{"blank email", KindInvitation, Ref{OrgID: "o1", Email: "   "}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Encode(tt.kind, tt.ref)
			assert.ErrorIs(t, err, ErrInvalidID)
		})
	}

	_, err := Encode(Kind("NOPE"), Ref{UserID: "u1"})
	assert.Error(t, err)
}

func TestDecode_UnknownShapes(t *testing.T) {
	for _, key := range []Key{
		{PK: "x#1", SK: "A"},
		{PK: "o#1", SK: "z#2"},
		{PK: "nohash", SK: "A"},
		{PK: "w#1", SK: "d#2"},
		{PK: "o#", SK: "A"},
	} {
		_, _, err := Decode(key)
		assert.ErrorIs(t, err, ErrUnknownKey, "%+v", key)
	}
}

func TestIndex(t *testing.T) {
	idx, ok, err := Index(KindWorkspaceMember, Ref{OrgID: "o1", WorkspaceID: "w1", UserID: "u1"})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, IndexKey{PK1: "u#u1", SK1: "o#o1#w#w1"}, idx)

	idx, ok, err = Index(KindOrgMember, Ref{OrgID: "o1", UserID: "u1"})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, IndexKey{PK1: "u#u1", SK1: "o#o1"}, idx)

	idx, ok, err = Index(KindUser, Ref{UserID: "u1", Email: "Me@X.io"})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, IndexKey{PK1: "e#me@x.io", SK1: "u#u1"}, idx)

	_, ok, err = Index(KindForm, Ref{WorkspaceID: "w1", FormID: "f1"})
	require.NoError(t, err)
	assert.False(t, ok)

	_, _, err = Index(KindWorkspaceMember, Ref{WorkspaceID: "w1", UserID: "u1"})
	assert.ErrorIs(t, err, ErrInvalidID)
}

func TestScopes_MatchOnlyTheirChildren(t *testing.T) {
	ws, err := Encode(KindWorkspace, Ref{OrgID: "o1", WorkspaceID: "w1"})
	require.NoError(t, err)
	member, err := Encode(KindOrgMember, Ref{OrgID: "o1", UserID: "u1"})
	require.NoError(t, err)

	scope, err := OrgWorkspaces("o1")
	require.NoError(t, err)
	assert.Equal(t, ws.PK, scope.PK)
	assert.True(t, strings.HasPrefix(ws.SK, scope.SKPrefix))
	assert.False(t, strings.HasPrefix(member.SK, scope.SKPrefix))

	// a membership de org não pode aparecer entre as de workspace
	orgIdx, _, _ := Index(KindOrgMember, Ref{OrgID: "o1", UserID: "u1"})
	wsIdx, _, _ := Index(KindWorkspaceMember, Ref{OrgID: "o1", WorkspaceID: "w1", UserID: "u1"})
	scope, err = UserWorkspaceMemberships("u1", "o1")
	require.NoError(t, err)
	assert.True(t, scope.OnIndex)
	assert.True(t, strings.HasPrefix(wsIdx.SK1, scope.SKPrefix))
	assert.False(t, strings.HasPrefix(orgIdx.SK1, scope.SKPrefix))

	scope, err = UsersByEmail("A@B.com")
	require.NoError(t, err)
	assert.Equal(t, Scope{OnIndex: true, PK: "e#a@b.com", SKPrefix: "u#", Kind: KindUser}, scope)

	_, err = FormFields("")
	assert.ErrorIs(t, err, ErrInvalidID)
	_, err = UserWorkspaceMemberships("u1", "")
	assert.ErrorIs(t, err, ErrInvalidID)
}
