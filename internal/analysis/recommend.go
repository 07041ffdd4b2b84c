package analysis

import (
	"sort"

	"campus-ml-go/internal/types"
)

// noRequirementScore 岗位没有技能要求时的得分
const noRequirementScore = 0.1

// RecommendPlacements 按技能匹配比例为岗位打分，得分高的在前，同分保持输入顺序
func RecommendPlacements(skills []string, posts []types.PlacementPost) []types.Recommendation {
	student := normalizeSkills(skills)
	recs := make([]types.Recommendation, 0, len(posts))

	for _, post := range posts {
		rec := types.Recommendation{
			PostID:              post.ID,
			Company:             post.Company,
			Title:               post.Title,
			TotalRequiredSkills: len(post.RequiredSkills),
		}
		if len(post.RequiredSkills) == 0 {
			rec.Score = noRequirementScore
		} else {
			matched := 0
			for _, r := range normalizeSkills(post.RequiredSkills) {
				if matchesAny(r, student) {
					matched++
				}
			}
			rec.MatchedSkillsCount = matched
			rec.Score = roundTo(float64(matched)/float64(len(post.RequiredSkills)), 3)
		}
		recs = append(recs, rec)
	}

	sort.SliceStable(recs, func(i, j int) bool {
		return recs[i].Score > recs[j].Score
	})
	return recs
}
