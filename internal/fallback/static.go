package fallback

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"schoolbridge/pkg/types"
)

// Static serves the hand-authored dataset compiled into the binary.
type Static struct {
	data map[Key]any
}

func NewStatic() *Static {
	return &Static{data: Dataset()}
}

func (s *Static) Lookup(_ context.Context, key Key) (json.RawMessage, error) {
	value, ok := s.data[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}

	raw, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("encode fallback %s: %w", key, err)
	}

	return raw, nil
}

// Dataset returns a fresh copy of every static slice keyed by fallback key.
func Dataset() map[Key]any {
	needs := staticNeeds()

	return map[Key]any{
		KeySchoolNeeds:               needs,
		KeyCompanyNeeds:              needs,
		KeyMyNeeds:                   needs[:2],
		KeyAIRecommendedNeeds:        []types.Need{needs[0], needs[2]},
		KeyCompanyAIRecommendedNeeds: []types.Need{needs[2], needs[3]},
		KeyPlatformStats: types.PlatformStats{
			SchoolsServed:     128,
			CompaniesJoined:   46,
			NeedsFulfilled:    312,
			StudentsBenefited: 9840,
		},
		KeySchoolDashboardStats: types.SchoolDashboardStats{
			TotalNeeds:        6,
			ActiveNeeds:       3,
			CompletedNeeds:    3,
			StudentsBenefited: 214,
		},
		KeyCompanyDashboardStats: types.CompanyDashboardStats{
			TotalDonations:    9,
			ActiveProjects:    4,
			CompletedProjects: 5,
			StudentsReached:   1260,
		},
		KeyRecentProjects:   staticProjects(),
		KeyImpactStories:    staticStories(),
		KeyCompanyDonations: staticDonations(needs),
		KeyRecentActivity:   staticActivity(),
	}
}

const DefaultNeedImageURL = "https://images.unsplash.com/photo-1509062522246-3755977927d7"

func staticNeeds() []types.Need {
	return []types.Need{
		{
			ID:           "need-001",
			SchoolID:     "school-001",
			SchoolName:   "花蓮縣立秀林國小",
			Title:        "平板電腦支援數位學習",
			Description:  "偏鄉學生缺乏數位學習設備，希望募集 20 台平板電腦供資訊課與線上課程使用。",
			Category:     "硬體設備",
			Location:     "花蓮縣",
			StudentCount: 45,
			ImageURL:     DefaultNeedImageURL,
			Urgency:      types.UrgencyHigh,
			SDGs:         []int{4, 10},
			Status:       "active",
		},
		{
			ID:           "need-002",
			SchoolID:     "school-001",
			SchoolName:   "花蓮縣立秀林國小",
			Title:        "課後輔導志工老師",
			Description:  "需要每週兩次的課後數學與英文輔導志工，協助學生補強基礎學科。",
			Category:     "師資支援",
			Location:     "花蓮縣",
			StudentCount: 30,
			ImageURL:     DefaultNeedImageURL,
			Urgency:      types.UrgencyMedium,
			SDGs:         []int{4},
			Status:       "active",
		},
		{
			ID:           "need-003",
			SchoolID:     "school-002",
			SchoolName:   "臺東縣立蘭嶼國中",
			Title:        "圖書館藏書更新",
			Description:  "學校圖書館書籍老舊，希望募集適合國中生閱讀的中英文書籍 500 本。",
			Category:     "教材書籍",
			Location:     "臺東縣",
			StudentCount: 120,
			ImageURL:     DefaultNeedImageURL,
			Urgency:      types.UrgencyMedium,
			SDGs:         []int{4, 17},
			Status:       "active",
		},
		{
			ID:           "need-004",
			SchoolID:     "school-003",
			SchoolName:   "南投縣立信義國小",
			Title:        "太陽能熱水系統",
			Description:  "住宿學生冬季缺乏熱水，希望建置太陽能熱水設備改善住宿環境。",
			Category:     "校園設施",
			Location:     "南投縣",
			StudentCount: 60,
			ImageURL:     DefaultNeedImageURL,
			Urgency:      types.UrgencyHigh,
			SDGs:         []int{6, 7},
			Status:       "active",
		},
		{
			ID:           "need-005",
			SchoolID:     "school-004",
			SchoolName:   "屏東縣立霧臺國小",
			Title:        "營養午餐食材補助",
			Description:  "部分家庭經濟弱勢，希望為學生提供一學期的營養午餐食材補助。",
			Category:     "營養餐食",
			Location:     "屏東縣",
			StudentCount: 38,
			ImageURL:     DefaultNeedImageURL,
			Urgency:      types.UrgencyLow,
			SDGs:         []int{2, 3},
			Status:       "active",
		},
	}
}

func staticProjects() []types.Project {
	return []types.Project{
		{ID: "project-001", Title: "數位學習教室", SchoolName: "花蓮縣立秀林國小", CompanyName: "台灣科技股份有限公司", ImageURL: DefaultNeedImageURL, Progress: 80, Status: "in_progress"},
		{ID: "project-002", Title: "閱讀推廣計畫", SchoolName: "臺東縣立蘭嶼國中", CompanyName: "綠色能源企業", ImageURL: DefaultNeedImageURL, Progress: 100, Status: "completed"},
		{ID: "project-003", Title: "科學實驗器材", SchoolName: "南投縣立信義國小", CompanyName: "未來教育基金會", ImageURL: DefaultNeedImageURL, Progress: 45, Status: "in_progress"},
	}
}

func staticStories() []types.ImpactStory {
	return []types.ImpactStory{
		{
			ID:          "story-001",
			Title:       "山上的孩子也能上線學程式",
			SchoolName:  "花蓮縣立秀林國小",
			CompanyName: "台灣科技股份有限公司",
			ImageURL:    DefaultNeedImageURL,
			Summary:     "20 台平板電腦與每月的遠距程式課，讓孩子第一次完成自己的小遊戲。",
			Date:        "2024-03-15",
			Impact:      &types.Impact{StudentsBenefited: 45, Equipment: "20 台平板電腦", Duration: "6 個月"},
		},
		{
			ID:          "story-002",
			Title:       "蘭嶼的新書香",
			SchoolName:  "臺東縣立蘭嶼國中",
			CompanyName: "綠色能源企業",
			ImageURL:    DefaultNeedImageURL,
			Summary:     "500 本新書與閱讀角改造，借閱量比去年成長三倍。",
			Date:        "2024-01-20",
			Impact:      &types.Impact{StudentsBenefited: 120, Equipment: "500 本書籍", Duration: "3 個月"},
		},
		{
			ID:          "story-003",
			Title:       "溫暖的冬天",
			SchoolName:  "南投縣立信義國小",
			CompanyName: "未來教育基金會",
			ImageURL:    DefaultNeedImageURL,
			Summary:     "太陽能熱水系統完工，住宿生終於能在冬天洗熱水澡。",
			Date:        "2023-12-05",
		},
	}
}

func staticDonations(needs []types.Need) []types.Donation {
	created := time.Date(2024, 2, 1, 9, 0, 0, 0, time.UTC)
	completed := time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC)
	donor := &types.Donor{ID: "company-001", Name: "王經理", CompanyName: "台灣科技股份有限公司"}

	return []types.Donation{
		{
			ID:           "donation-001",
			NeedID:       needs[0].ID,
			DonorID:      donor.ID,
			DonationType: "物資捐贈",
			Description:  "捐贈 20 台平板電腦與保護殼",
			Progress:     100,
			Status:       types.DonationStatusCompleted,
			CreatedAt:    created,
			CompletedAt:  &completed,
			Need:         &needs[0],
			Donor:        donor,
		},
		{
			ID:           "donation-002",
			NeedID:       needs[2].ID,
			DonorID:      donor.ID,
			DonationType: "資金贊助",
			Description:  "贊助圖書採購經費",
			Progress:     60,
			Status:       types.DonationStatusInProgress,
			CreatedAt:    created.AddDate(0, 1, 0),
			Need:         &needs[2],
			Donor:        donor,
		},
		{
			ID:           "donation-003",
			NeedID:       needs[3].ID,
			DonorID:      donor.ID,
			DonationType: "專業服務",
			Description:  "派遣工程師評估太陽能熱水系統",
			Progress:     0,
			Status:       types.DonationStatusPending,
			CreatedAt:    created.AddDate(0, 2, 0),
			Need:         &needs[3],
			Donor:        donor,
		},
	}
}

func staticActivity() []types.Activity {
	base := time.Date(2024, 3, 20, 10, 0, 0, 0, time.UTC)
	return []types.Activity{
		{ID: "activity-001", Type: "donation", Title: "新的贊助", Description: "台灣科技股份有限公司贊助了平板電腦支援數位學習", Timestamp: base},
		{ID: "activity-002", Type: "need", Title: "新需求發布", Description: "南投縣立信義國小發布了太陽能熱水系統需求", Timestamp: base.Add(-26 * time.Hour)},
		{ID: "activity-003", Type: "completed", Title: "專案完成", Description: "蘭嶼的圖書館藏書更新已完成", Timestamp: base.Add(-72 * time.Hour)},
	}
}
