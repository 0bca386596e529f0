// Package rtctoken builds RTC AccessToken (v2, "007" prefix) credentials.
//
// Layout of a token:
//
//	"007" + base64( zlib( packString(signature) + content ) )
//	content = packString(appID) | u32 issueTs | u32 expire | u32 salt | u16 nServices | services...
//
// All integers are little-endian. signature = HMAC-SHA256(signingKey, content) where
// signingKey = HMAC(u32 salt, HMAC(u32 issueTs, appCertificate)).
package rtctoken

import (
	"bytes"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math/big"
	"sort"
	"time"

	"github.com/klauspost/compress/zlib"
)

const (
	Version       = "007"
	versionLength = 3

	ServiceTypeRtc uint16 = 1
)

// RTC 权限
const (
	PrivilegeJoinChannel  uint16 = 1
	PrivilegePublishAudio uint16 = 2
	PrivilegePublishVideo uint16 = 3
	PrivilegePublishData  uint16 = 4
)

var ErrInvalidToken = errors.New("rtctoken: invalid token")

// Service 是 token 里一个可授权的服务段（目前只有 RTC）
type Service interface {
	Type() uint16
	Privileges() map[uint16]uint32
	pack(w *bytes.Buffer)
	unpack(r *bytes.Reader) error
}

// RtcService 频道维度的授权；UID 为空串表示由传输层分配
type RtcService struct {
	privileges  map[uint16]uint32
	ChannelName string
	UID         string
}

func NewRtcService(channelName, uid string) *RtcService {
	return &RtcService{privileges: map[uint16]uint32{}, ChannelName: channelName, UID: uid}
}

// AddPrivilege expire 为相对签发时间的秒数
func (s *RtcService) AddPrivilege(p uint16, expire uint32) {
	s.privileges[p] = expire
}

func (s *RtcService) Type() uint16                  { return ServiceTypeRtc }
func (s *RtcService) Privileges() map[uint16]uint32 { return s.privileges }

func (s *RtcService) pack(w *bytes.Buffer) {
	packUint16(w, s.Type())
	packMapUint32(w, s.privileges)
	packString(w, s.ChannelName)
	packString(w, s.UID)
}

func (s *RtcService) unpack(r *bytes.Reader) error {
	var err error
	if s.privileges, err = unpackMapUint32(r); err != nil {
		return err
	}
	if s.ChannelName, err = unpackString(r); err != nil {
		return err
	}
	s.UID, err = unpackString(r)
	return err
}

// AccessToken 未签名的 token 描述
type AccessToken struct {
	AppID    string
	IssueTs  uint32
	Expire   uint32 // 相对 IssueTs 的秒数
	Salt     uint32
	Services map[uint16]Service

	appCert string
}

// NewAccessToken issueTs 取当前时间，salt 取随机数
func NewAccessToken(appID, appCert string, expire uint32) (*AccessToken, error) {
	salt, err := randomSalt()
	if err != nil {
		return nil, err
	}
	return &AccessToken{
		AppID:    appID,
		IssueTs:  uint32(time.Now().Unix()),
		Expire:   expire,
		Salt:     salt,
		Services: map[uint16]Service{},
		appCert:  appCert,
	}, nil
}

func (t *AccessToken) AddService(s Service) {
	t.Services[s.Type()] = s
}

// ExpiresAt 绝对过期时间
func (t *AccessToken) ExpiresAt() time.Time {
	return time.Unix(int64(t.IssueTs)+int64(t.Expire), 0)
}

func (t *AccessToken) signingKey() []byte {
	h := hmac.New(sha256.New, uint32Bytes(t.IssueTs))
	h.Write([]byte(t.appCert))
	k := h.Sum(nil)
	h = hmac.New(sha256.New, uint32Bytes(t.Salt))
	h.Write(k)
	return h.Sum(nil)
}

func (t *AccessToken) content() []byte {
	var buf bytes.Buffer
	packString(&buf, t.AppID)
	packUint32(&buf, t.IssueTs)
	packUint32(&buf, t.Expire)
	packUint32(&buf, t.Salt)
	packUint16(&buf, uint16(len(t.Services)))
	types := make([]int, 0, len(t.Services))
	for k := range t.Services {
		types = append(types, int(k))
	}
	sort.Ints(types)
	for _, k := range types {
		t.Services[uint16(k)].pack(&buf)
	}
	return buf.Bytes()
}

// Build 签名并编码
func (t *AccessToken) Build() (string, error) {
	if t.AppID == "" || t.appCert == "" {
		return "", errors.New("rtctoken: app id and certificate are required")
	}
	content := t.content()
	h := hmac.New(sha256.New, t.signingKey())
	h.Write(content)
	sig := h.Sum(nil)

	var body bytes.Buffer
	packString(&body, string(sig))
	body.Write(content)

	var z bytes.Buffer
	zw := zlib.NewWriter(&z)
	if _, err := zw.Write(body.Bytes()); err != nil {
		return "", fmt.Errorf("rtctoken: compress: %w", err)
	}
	if err := zw.Close(); err != nil {
		return "", fmt.Errorf("rtctoken: compress: %w", err)
	}
	return Version + base64.StdEncoding.EncodeToString(z.Bytes()), nil
}

// Parse 解码 token（不校验签名）。返回的 AccessToken 不含证书，无法再次 Build。
func Parse(token string) (*AccessToken, []byte, error) {
	if len(token) <= versionLength || token[:versionLength] != Version {
		return nil, nil, ErrInvalidToken
	}
	raw, err := base64.StdEncoding.DecodeString(token[versionLength:])
	if err != nil {
		return nil, nil, ErrInvalidToken
	}
	zr, err := zlib.NewReader(bytes.NewReader(raw))
	if err != nil {
		return nil, nil, ErrInvalidToken
	}
	defer zr.Close()
	body, err := io.ReadAll(zr)
	if err != nil {
		return nil, nil, ErrInvalidToken
	}

	r := bytes.NewReader(body)
	sig, err := unpackString(r)
	if err != nil {
		return nil, nil, ErrInvalidToken
	}
	t := &AccessToken{Services: map[uint16]Service{}}
	if t.AppID, err = unpackString(r); err != nil {
		return nil, nil, ErrInvalidToken
	}
	for _, p := range []*uint32{&t.IssueTs, &t.Expire, &t.Salt} {
		if err := binary.Read(r, binary.LittleEndian, p); err != nil {
			return nil, nil, ErrInvalidToken
		}
	}
	var n uint16
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return nil, nil, ErrInvalidToken
	}
	for i := 0; i < int(n); i++ {
		var typ uint16
		if err := binary.Read(r, binary.LittleEndian, &typ); err != nil {
			return nil, nil, ErrInvalidToken
		}
		if typ != ServiceTypeRtc {
			return nil, nil, fmt.Errorf("%w: unknown service type %d", ErrInvalidToken, typ)
		}
		s := NewRtcService("", "")
		if err := s.unpack(r); err != nil {
			return nil, nil, ErrInvalidToken
		}
		t.Services[typ] = s
	}
	return t, []byte(sig), nil
}

// Verify 用证书重新计算签名并比对
func Verify(token, appCert string) (*AccessToken, bool) {
	t, sig, err := Parse(token)
	if err != nil {
		return nil, false
	}
	t.appCert = appCert
	h := hmac.New(sha256.New, t.signingKey())
	h.Write(t.content())
	return t, hmac.Equal(sig, h.Sum(nil))
}

func randomSalt() (uint32, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(99999999))
	if err != nil {
		return 0, fmt.Errorf("rtctoken: salt: %w", err)
	}
	return uint32(n.Int64()) + 1, nil
}
