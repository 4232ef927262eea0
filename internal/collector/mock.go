package collector

import (
	"context"
	"time"
)

// MockEvents 未配置 Discord 凭据时使用的两条固定示例数据，时间相对 now 计算
func MockEvents(now time.Time) []RawEvent {
	return []RawEvent{
		{
			ID:                 "1",
			Name:               "Street Session: Downtown Vibes #IRL #DNB",
			Description:        "Open DJ set in the city center.\n#IRL #DNB\nhttps://hpsbassline.myftp.biz/",
			ScheduledStartTime: now.Add(30 * time.Minute).UTC().Format(time.RFC3339Nano),
			ScheduledEndTime:   now.Add(2 * time.Hour).UTC().Format(time.RFC3339Nano),
			EntityMetadata:     EntityMetadata{Location: "Haapsalu"},
			Image:              "https://images.pexels.com/photos/1190298/pexels-photo-1190298.jpeg",
		},
		{
			ID:                 "2",
			Name:               "VR Club Showcase #VR #HARDCORE",
			Description:        "Immersive VR experience.\n#VR #HARDCORE\nhttps://twitch.tv/hps_bassline",
			ScheduledStartTime: now.Add(3 * time.Hour).UTC().Format(time.RFC3339Nano),
			EntityMetadata:     EntityMetadata{Location: "VRChat"},
			Image:              "https://images.pexels.com/photos/3404200/pexels-photo-3404200.jpeg",
		},
	}
}

// MockFetcher 返回 MockEvents，供本地离线运行与 cmd/collect 使用
type MockFetcher struct {
	Now func() time.Time
}

func (m *MockFetcher) Name() string {
	return "mock"
}

func (m *MockFetcher) Fetch(ctx context.Context) ([]RawEvent, error) {
	now := time.Now
	if m.Now != nil {
		now = m.Now
	}
	return MockEvents(now()), nil
}
